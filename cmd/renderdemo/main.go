package main

// Render a sample profile to LaTeX and optionally compile it:
//   go run ./cmd/renderdemo -out ./out/sample_resume.tex
//   go run ./cmd/renderdemo -compile

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"resume-pipeline/internal/latex"
	"resume-pipeline/internal/profile"
	"resume-pipeline/internal/render"
	"resume-pipeline/internal/shared/config"
)

func main() {
	cfg := config.Load()

	outPath := flag.String("out", "./out/sample_resume.tex", "output path for generated LaTeX")
	profilePath := flag.String("profile", "", "profile JSON to render instead of the built-in sample")
	compile := flag.Bool("compile", false, "send the source to the compile service and write a PDF next to it")
	flag.Parse()

	prof := sampleProfile()
	if *profilePath != "" {
		raw, err := os.ReadFile(*profilePath)
		if err != nil {
			exitErr(fmt.Sprintf("read profile: %v", err))
		}
		if err := json.Unmarshal(raw, &prof); err != nil {
			exitErr(fmt.Sprintf("decode profile: %v", err))
		}
		prof.Skills = profile.SanitizeSkills(prof.Skills)
	}

	source, err := render.New().Render(prof)
	if err != nil {
		exitErr(fmt.Sprintf("render failed: %v", err))
	}
	if pos := strings.Index(source, "{{"); pos != -1 {
		exitErr(fmt.Sprintf("unresolved template tokens near: %s", snippetAround(source, pos, 200)))
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		exitErr(fmt.Sprintf("mkdir: %v", err))
	}
	if err := os.WriteFile(*outPath, []byte(source), 0o644); err != nil {
		exitErr(fmt.Sprintf("write failed: %v", err))
	}
	fmt.Printf("OK: wrote %s\n", *outPath)

	if !*compile {
		return
	}
	client := latex.New(latex.Options{BaseURL: cfg.LatexBaseURL, Timeout: cfg.LatexTimeout})
	pdf, err := client.Compile(context.Background(), source)
	if err != nil {
		exitErr(fmt.Sprintf("compile failed: %v", err))
	}
	pdfPath := strings.TrimSuffix(*outPath, filepath.Ext(*outPath)) + ".pdf"
	if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
		exitErr(fmt.Sprintf("write pdf: %v", err))
	}
	pages, _ := latex.PageCount(pdf)
	fmt.Printf("OK: wrote %s (%d bytes, %d pages)\n", pdfPath, len(pdf), pages)
}

func sampleProfile() profile.Profile {
	str := func(s string) *string { return &s }
	return profile.Profile{
		PersonalDetails: profile.PersonalDetails{
			Name:        "Jordan Lee",
			Email:       "jordan.lee@example.com",
			Phone:       "+1-555-0102",
			Address:     "Austin, TX",
			LinkedinURL: "https://www.linkedin.com/in/jordanlee",
			GithubURL:   "https://github.com/jordanlee",
			Summary:     "Backend engineer with 8+ years building resilient APIs & data services.",
		},
		WorkExperiences: []profile.WorkExperience{
			{
				JobTitle:     "Senior Backend Engineer",
				CompanyName:  "Acme Logistics",
				Location:     "Austin, TX",
				StartDate:    profile.ParseDate("2021-04"),
				EndDate:      profile.Present,
				IsCurrentJob: true,
				Description:  "Designed a routing service that reduced shipment latency by 18%.\nImplemented distributed tracing to cut incident triage time by 35%.",
			},
			{
				JobTitle:    "Backend Engineer",
				CompanyName: "Blue Harbor Systems",
				Location:    "Seattle, WA",
				StartDate:   profile.ParseDate("2018-01"),
				EndDate:     profile.ParseDate("2021-03"),
				Description: "Built event-driven ingestion pipelines for compliance data feeds.",
			},
		},
		Educations: []profile.Education{
			{
				InstitutionName: "University of Texas",
				Degree:          "B.Sc.",
				FieldOfStudy:    "Computer Science",
				StartDate:       profile.ParseDate("2012"),
				EndDate:         profile.ParseDate("2016"),
			},
		},
		Skills: []profile.Skill{
			{SkillName: str("Go"), Category: str("Languages")},
			{SkillName: str("Java"), Category: str("Languages")},
			{SkillName: str("PostgreSQL"), Category: str("Databases")},
			{SkillName: str("C#")},
		},
		Projects: []profile.Project{
			{
				Name:         "route_planner",
				TechStack:    "Go, gRPC",
				Date:         profile.ParseDate("2022-06"),
				Achievements: []string{"Cut planning time by 40%", "Served $2M in monthly bookings"},
			},
		},
		Certificates: []profile.Certificate{
			{Name: "AWS Solutions Architect", Date: profile.ParseDate("2023-02"), Institution: "Amazon", URL: "https://aws.amazon.com/certification/"},
		},
	}
}

func snippetAround(text string, pos, maxLen int) string {
	start := pos - maxLen/2
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(text) {
		end = len(text)
	}
	return text[start:end]
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
