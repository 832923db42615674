package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"resume-pipeline/internal/profile"
)

func strp(s string) *string { return &s }

func janeProfile() profile.Profile {
	return profile.Profile{
		PersonalDetails: profile.PersonalDetails{
			Name:        "Jane Doe",
			Email:       "jane@x.com",
			Phone:       "+1 555 0100",
			Address:     "Springfield",
			GithubURL:   "https://github.com/janedoe",
			LinkedinURL: "https://www.linkedin.com/in/jane-doe/",
		},
		WorkExperiences: []profile.WorkExperience{
			{
				JobTitle:     "Engineer",
				CompanyName:  "R&D Labs",
				Location:     "Remote",
				StartDate:    profile.Day(2020, time.June, 1),
				EndDate:      profile.Present,
				IsCurrentJob: true,
				Description:  "Built pipelines\n\n  Cut costs by 50%  ",
			},
			{
				JobTitle:    "Intern",
				CompanyName: "Acme",
				StartDate:   profile.Day(2019, time.January, 1),
				EndDate:     profile.Day(2019, time.August, 1),
			},
		},
		Educations: []profile.Education{
			{InstitutionName: "State U", Degree: "BSc", FieldOfStudy: "CS", StartDate: profile.Day(2015, time.September, 1)},
		},
		Skills: []profile.Skill{
			{SkillName: strp("Go"), Category: strp("Languages")},
			{SkillName: strp("Docker")},
			{SkillName: strp("SQL"), Category: strp("Languages")},
		},
		Projects: []profile.Project{
			{Name: "Parser", TechStack: "Go, gin", Date: profile.Day(2022, time.March, 1), Achievements: []string{"Shipped v1", " "}},
		},
		Certificates: []profile.Certificate{
			{Name: "CKA", Date: profile.Day(2023, time.January, 1), Institution: "CNCF", URL: "https://cncf.io/cka"},
		},
	}
}

func TestRenderFullProfile(t *testing.T) {
	out, err := New().Render(janeProfile())
	require.NoError(t, err)

	require.Contains(t, out, `{\Huge \scshape \textbf{Jane Doe}} \\ \hspace{0.5em}Springfield \\ `)
	require.Contains(t, out, `\href{mailto:jane@x.com}{\faEnvelope\ \underline{jane@x.com}}`)
	require.Contains(t, out, `\faGithub\ \underline{janedoe}`)
	require.Contains(t, out, `\href{https://www.linkedin.com/in/jane-doe}{\faLinkedin\ \underline{linkedin.com/in/jane-doe}}`)
	require.Contains(t, out, `\resumeSubheading{Engineer}{June 2020 -- Present}{R\&D Labs}{Remote}`)
	require.Contains(t, out, `\resumeSubheading{Intern}{January 2019 -- August 2019}{Acme}{}`)
	require.Contains(t, out, `\resumeItem{Cut costs by 50\%}`)
	require.Contains(t, out, `\resumeSubheading{State U}{2015-09-01 -- Present}{BSc}{CS}`)
	require.Contains(t, out, `\resumeProjectHeading{\textbf{Parser} | \emph{Go, gin}}{2022-03-01}`)
	require.Contains(t, out, `\item{\textbf{Languages}{: Go, SQL} \\\textbf{Other}{: Docker}}`)
	require.Contains(t, out, `\textbf{CKA} \hfill \textbf{\textit{Issued 2023-01-01}}`)
	require.NotContains(t, out, "{{")
	require.Equal(t, 1, strings.Count(out, "Shipped v1"))
}

func TestRenderEmptyProfile(t *testing.T) {
	out, err := New().Render(profile.Profile{})
	require.NoError(t, err)
	// education, experience, projects, skills, certificates
	require.Equal(t, 5, strings.Count(out, `\item{}`))
	require.NotContains(t, out, `\Huge`)
}

func TestRenderUnknownPlaceholder(t *testing.T) {
	r, err := NewFromTemplate(`\begin{document}{{heading}} {{awards}}\end{document}`)
	require.NoError(t, err)
	_, err = r.Render(janeProfile())
	require.ErrorIs(t, err, ErrUnresolvedPlaceholder)
	require.Contains(t, err.Error(), "{{awards}}")
}

func TestRenderIsStable(t *testing.T) {
	r := New()
	a, err := r.Render(janeProfile())
	require.NoError(t, err)
	b, err := r.Render(janeProfile())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestLinkedinHandle(t *testing.T) {
	cases := []struct{ in, want string }{
		{"jane", "jane"},
		{"linkedin.com/in/jane", "jane"},
		{"http://linkedin.com/in/jane/", "jane"},
		{"https://www.LinkedIn.com/in/jane", "jane"},
		{"null", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, linkedinHandle(tc.in), tc.in)
	}
}
