package render

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"resume-pipeline/internal/profile"
)

//go:embed template.tex
var defaultTemplate string

const emptySection = `\item{}`

// ErrUnresolvedPlaceholder is returned when rendered output still carries a {{name}} marker.
var ErrUnresolvedPlaceholder = errors.New("unresolved template placeholder")

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z][A-Za-z0-9_]*)\s*\}\}`)

type segment struct {
	literal string
	key     string
}

// Renderer substitutes profile fragments into a LaTeX template parsed once at
// construction. It holds no mutable state and is safe for concurrent use.
type Renderer struct {
	segments []segment
}

// New returns a Renderer over the embedded resume template.
func New() *Renderer {
	return parseTemplate(defaultTemplate)
}

// NewFromTemplate parses a caller-supplied template with the same placeholder syntax.
func NewFromTemplate(src string) (*Renderer, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.New("empty template")
	}
	return parseTemplate(src), nil
}

func parseTemplate(src string) *Renderer {
	var segs []segment
	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(src, -1) {
		if m[0] > last {
			segs = append(segs, segment{literal: src[last:m[0]]})
		}
		segs = append(segs, segment{literal: src[m[0]:m[1]], key: src[m[2]:m[3]]})
		last = m[1]
	}
	if last < len(src) {
		segs = append(segs, segment{literal: src[last:]})
	}
	return &Renderer{segments: segs}
}

// Render maps p onto the template.
func (r *Renderer) Render(p profile.Profile) (string, error) {
	fragments := Fragments(p)
	var sb strings.Builder
	for _, seg := range r.segments {
		if seg.key == "" {
			sb.WriteString(seg.literal)
			continue
		}
		if v, ok := fragments[seg.key]; ok {
			sb.WriteString(v)
			continue
		}
		sb.WriteString(seg.literal)
	}
	out := sb.String()
	if m := placeholderRe.FindString(out); m != "" {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, m)
	}
	return out, nil
}

// Fragments builds the LaTeX snippet for every placeholder the template knows.
func Fragments(p profile.Profile) map[string]string {
	heading, contact := personalFragments(p.PersonalDetails)
	return map[string]string{
		"heading":      heading,
		"contactInfo":  contact,
		"education":    orEmpty(educationFragment(p.Educations)),
		"experience":   orEmpty(experienceFragment(p.WorkExperiences)),
		"projects":     orEmpty(projectsFragment(p.Projects)),
		"skills":       skillsFragment(p.Skills),
		"certificates": orEmpty(certificatesFragment(p.Certificates)),
	}
}

func orEmpty(s string) string {
	if s == "" {
		return emptySection
	}
	return s
}

func personalFragments(d profile.PersonalDetails) (string, string) {
	if d == (profile.PersonalDetails{}) {
		return "", ""
	}

	var heading strings.Builder
	heading.WriteString(`{\Huge \scshape \textbf{` + Escape(d.Name) + `}} \\ `)
	if loc := Escape(d.Address); loc != "" {
		heading.WriteString(`\hspace{0.5em}` + loc + ` \\ `)
	}

	var contact strings.Builder
	contact.WriteString(`{\small `)
	if phone := Escape(d.Phone); phone != "" {
		contact.WriteString(`\faPhone\ ` + phone + ` \hspace{0.5em} `)
	}
	if email := Escape(d.Email); email != "" {
		contact.WriteString(`\href{mailto:` + email + `}{\faEnvelope\ \underline{` + email + `}} \hspace{0.5em} `)
	}
	if github := Escape(d.GithubURL); github != "" {
		contact.WriteString(`\href{` + github + `}{\faGithub\ \underline{` + lastPathSegment(github) + `}} \hspace{0.5em} `)
	}
	if handle := Escape(linkedinHandle(d.LinkedinURL)); handle != "" {
		contact.WriteString(`\href{https://www.linkedin.com/in/` + handle + `}{\faLinkedin\ \underline{linkedin.com/in/` + handle + `}} \hspace{0.5em} `)
	}
	if site := Escape(d.PortfolioURL); site != "" {
		contact.WriteString(`\href{` + site + `}{\faGlobe\ \underline{` + site + `}}`)
	}
	contact.WriteString(`}`)
	return heading.String(), contact.String()
}

func lastPathSegment(u string) string {
	u = strings.TrimRight(u, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}

// linkedinHandle accepts a bare handle or any linkedin.com/in/ URL form.
func linkedinHandle(u string) string {
	if isBlank(u) {
		return ""
	}
	h := strings.TrimSpace(u)
	for _, prefix := range []string{"https://", "http://", "www.", "linkedin.com/in/"} {
		if len(h) >= len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			h = h[len(prefix):]
		}
	}
	return strings.Trim(h, "/")
}

func educationFragment(items []profile.Education) string {
	var sb strings.Builder
	for _, e := range items {
		end := e.EndDate.String()
		if end == "" {
			end = "Present"
		}
		dates := e.StartDate.String() + " -- " + end
		fmt.Fprintf(&sb, "\\resumeSubheading{%s}{%s}{%s}{%s}\n",
			Escape(e.InstitutionName), Escape(dates), Escape(e.Degree), Escape(e.FieldOfStudy))
	}
	return sb.String()
}

const monthYear = "January 2006"

func experienceFragment(items []profile.WorkExperience) string {
	var sb strings.Builder
	for _, w := range items {
		end := "Present"
		if !w.Ongoing() {
			end = w.EndDate.Format(monthYear)
		}
		dates := w.StartDate.Format(monthYear) + " -- " + end
		fmt.Fprintf(&sb, "\\resumeSubheading{%s}{%s}{%s}{%s}\n",
			Escape(w.JobTitle), Escape(dates), Escape(w.CompanyName), Escape(w.Location))
		writeItems(&sb, strings.Split(strings.ReplaceAll(w.Description, "\r\n", "\n"), "\n"))
	}
	return sb.String()
}

func projectsFragment(items []profile.Project) string {
	var sb strings.Builder
	for _, p := range items {
		heading := `\textbf{` + Escape(p.Name) + `} | \emph{` + Escape(p.TechStack) + `}`
		fmt.Fprintf(&sb, "\\resumeProjectHeading{%s}{%s}\n", heading, Escape(p.Date.String()))
		writeItems(&sb, p.Achievements)
	}
	return sb.String()
}

func writeItems(sb *strings.Builder, lines []string) {
	var items []string
	for _, l := range lines {
		if !isBlank(l) {
			items = append(items, Escape(strings.TrimSpace(l)))
		}
	}
	if len(items) == 0 {
		return
	}
	sb.WriteString("    \\resumeItemListStart\n")
	for _, it := range items {
		fmt.Fprintf(sb, "        \\resumeItem{%s}\n", it)
	}
	sb.WriteString("    \\resumeItemListEnd\n")
}

func skillsFragment(skills []profile.Skill) string {
	var order []string
	byCategory := map[string][]string{}
	for _, s := range skills {
		name := escapePtr(s.SkillName)
		if name == "" {
			continue
		}
		cat := escapePtr(s.Category)
		if cat == "" {
			cat = "Other"
		}
		if _, seen := byCategory[cat]; !seen {
			order = append(order, cat)
		}
		byCategory[cat] = append(byCategory[cat], name)
	}
	if len(order) == 0 {
		return emptySection
	}
	lines := make([]string, 0, len(order))
	for _, cat := range order {
		lines = append(lines, `\textbf{`+cat+`}{: `+strings.Join(byCategory[cat], ", ")+`}`)
	}
	return `\item{` + strings.Join(lines, ` \\`) + `}`
}

func certificatesFragment(items []profile.Certificate) string {
	var sb strings.Builder
	for _, c := range items {
		sb.WriteString("    \\item{\n")
		fmt.Fprintf(&sb, "        \\textbf{%s} \\hfill \\textbf{\\textit{Issued %s}} \\\\ ", Escape(c.Name), Escape(c.Date.String()))
		fmt.Fprintf(&sb, "        \\textit{%s} \\hfill \\href{%s}{\\textit{ Link}}\n", Escape(c.Institution), Escape(c.URL))
		sb.WriteString("    }\n")
	}
	return sb.String()
}
