package profile

import "strings"

func isNullish(s *string) bool {
	if s == nil {
		return true
	}
	v := strings.TrimSpace(*s)
	return v == "" || strings.EqualFold(v, "null")
}

// SanitizeSkills drops skills without a usable name and clears "null" levels and categories.
func SanitizeSkills(in []Skill) []Skill {
	out := make([]Skill, 0, len(in))
	for _, s := range in {
		if isNullish(s.SkillName) {
			continue
		}
		if isNullish(s.ProficiencyLevel) {
			s.ProficiencyLevel = nil
		}
		if isNullish(s.Category) {
			s.Category = nil
		}
		out = append(out, s)
	}
	return out
}
