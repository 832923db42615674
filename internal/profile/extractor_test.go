package profile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"resume-pipeline/internal/llm"
)

const janeReply = `{
  "personalDetails": {"name": "Jane Doe", "email": "jane@x.com", "phone": null},
  "workExperiences": [
    {"jobTitle": "Engineer", "companyName": "Acme", "startDate": "2020-06-01", "endDate": "Present", "currentJob": true, "description": "Built things"}
  ],
  "educations": [],
  "skills": [
    {"skillName": "Go", "proficiencyLevel": "Expert", "category": "Languages"},
    {"skillName": null, "proficiencyLevel": "Beginner"},
    {"skillName": "  ", "proficiencyLevel": null},
    {"skillName": "null"},
    {"skillName": "SQL", "proficiencyLevel": "null"}
  ],
  "projects": null,
  "certificates": [{"name": "CKA", "date": "2023", "institution": "CNCF", "url": null}]
}`

func TestExtractSendsTextAndParses(t *testing.T) {
	var prompt string
	ex := &Extractor{LLM: llm.CompleterFunc(func(ctx context.Context, p string) (string, error) {
		prompt = p
		return janeReply, nil
	})}

	p, err := ex.Extract(context.Background(), "Jane Doe, jane@x.com")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(prompt, "Here is the resume text:\n\nJane Doe, jane@x.com"))
	require.Contains(t, prompt, "use the literal string 'Present'")

	require.Equal(t, "Jane Doe", p.PersonalDetails.Name)
	require.Equal(t, "jane@x.com", p.PersonalDetails.Email)
	require.Empty(t, p.PersonalDetails.Phone)
	require.Len(t, p.WorkExperiences, 1)
	require.True(t, p.WorkExperiences[0].EndDate.IsPresent())
	require.Equal(t, Day(2020, time.June, 1), p.WorkExperiences[0].StartDate)
	require.Equal(t, "2023-01-01", p.Certificates[0].Date.String())
}

func TestParseReplySanitizesSkills(t *testing.T) {
	p, err := ParseReply(janeReply)
	require.NoError(t, err)
	require.Len(t, p.Skills, 2)
	require.Equal(t, "Go", *p.Skills[0].SkillName)
	require.Equal(t, "Expert", *p.Skills[0].ProficiencyLevel)
	require.Equal(t, "SQL", *p.Skills[1].SkillName)
	require.Nil(t, p.Skills[1].ProficiencyLevel)
	for _, s := range p.Skills {
		require.NotNil(t, s.SkillName)
		require.NotEmpty(t, strings.TrimSpace(*s.SkillName))
	}
}

func TestParseReplyCodeFenced(t *testing.T) {
	reply := "Sure, here is the profile:\n```json\n{\"personalDetails\":{\"name\":\"Jane Doe\"}}\n```\nLet me know!"
	p, err := ParseReply(reply)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", p.PersonalDetails.Name)
}

func TestParseReplyWithoutObjectIsEmpty(t *testing.T) {
	for _, reply := range []string{"", "no json here", "} backwards {"} {
		p, err := ParseReply(reply)
		require.NoError(t, err, reply)
		require.True(t, p.IsEmpty(), reply)
	}
}

func TestParseReplyErrors(t *testing.T) {
	cases := map[string]string{
		"invalid json":     `{"personalDetails": {"name": }`,
		"wrong shape":      `{"workExperiences": {"jobTitle": "x"}}`,
		"non string field": `{"personalDetails": {"email": 42}}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseReply(reply)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrParse))
		})
	}
}

func TestExtractPropagatesCompletionError(t *testing.T) {
	ex := &Extractor{LLM: llm.Unconfigured{Provider: "gemini"}}
	_, err := ex.Extract(context.Background(), "text")
	require.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestExtractAppliesTimeout(t *testing.T) {
	ex := &Extractor{
		Timeout: time.Minute,
		LLM: llm.CompleterFunc(func(ctx context.Context, p string) (string, error) {
			_, ok := ctx.Deadline()
			if !ok {
				return "", errors.New("missing deadline")
			}
			return "{}", nil
		}),
	}
	_, err := ex.Extract(context.Background(), "text")
	require.NoError(t, err)
}
