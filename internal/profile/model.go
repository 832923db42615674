package profile

// Profile is the structured view of a resume. JSON keys follow the extraction
// prompt so the completion reply decodes directly.
type Profile struct {
	PersonalDetails PersonalDetails  `json:"personalDetails"`
	WorkExperiences []WorkExperience `json:"workExperiences"`
	Educations      []Education      `json:"educations"`
	Skills          []Skill          `json:"skills"`
	Projects        []Project        `json:"projects"`
	Certificates    []Certificate    `json:"certificates"`
}

type PersonalDetails struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	LinkedinURL  string `json:"linkedinUrl"`
	GithubURL    string `json:"githubUrl"`
	PortfolioURL string `json:"portfolioUrl"`
	Summary      string `json:"summary"`
}

type WorkExperience struct {
	JobTitle     string `json:"jobTitle"`
	CompanyName  string `json:"companyName"`
	Location     string `json:"location"`
	StartDate    Date   `json:"startDate"`
	EndDate      Date   `json:"endDate"`
	IsCurrentJob bool   `json:"currentJob"`
	Description  string `json:"description"`
}

// Ongoing reports whether the role has no end, either flagged current or ending "Present".
func (w WorkExperience) Ongoing() bool {
	return w.IsCurrentJob || w.EndDate.IsPresent() || w.EndDate.IsZero()
}

type Education struct {
	InstitutionName string `json:"institutionName"`
	Degree          string `json:"degree"`
	FieldOfStudy    string `json:"fieldOfStudy"`
	StartDate       Date   `json:"startDate"`
	EndDate         Date   `json:"endDate"`
	Grade           string `json:"grade"`
	Description     string `json:"description"`
}

// Skill keeps pointer fields so an absent value stays distinguishable from "".
type Skill struct {
	SkillName        *string `json:"skillName"`
	ProficiencyLevel *string `json:"proficiencyLevel"`
	Category         *string `json:"category"`
}

type Project struct {
	Name         string   `json:"name"`
	TechStack    string   `json:"techStack"`
	Date         Date     `json:"date"`
	Achievements []string `json:"achievements"`
}

type Certificate struct {
	Name        string `json:"name"`
	Date        Date   `json:"date"`
	Institution string `json:"institution"`
	URL         string `json:"url"`
}

// IsEmpty reports whether nothing at all was extracted.
func (p Profile) IsEmpty() bool {
	return p.PersonalDetails == (PersonalDetails{}) &&
		len(p.WorkExperiences) == 0 &&
		len(p.Educations) == 0 &&
		len(p.Skills) == 0 &&
		len(p.Projects) == 0 &&
		len(p.Certificates) == 0
}
