package main

// Run text extraction and structuring on a local file:
//   go run ./cmd/prompttest -resume ./cv.pdf
//   go run ./cmd/prompttest -resume ./cv.docx -provider openai -out profile.json
//   go run ./cmd/prompttest -reply ./reply.txt   # parse a saved completion only

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"resume-pipeline/internal/extract"
	"resume-pipeline/internal/llm"
	"resume-pipeline/internal/llm/gemini"
	"resume-pipeline/internal/llm/openai"
	"resume-pipeline/internal/profile"
	"resume-pipeline/internal/shared/config"
	"resume-pipeline/internal/submissions"
)

func main() {
	cfg := config.Load()

	resumePath := flag.String("resume", "", "Path to resume file (pdf, doc or docx)")
	replyPath := flag.String("reply", "", "Path to a saved completion reply; skips extraction and the LLM call")
	outPath := flag.String("out", "", "Path to write the profile JSON (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider: gemini or openai")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	showText := flag.Bool("text", false, "Print the extracted text to stderr")
	flag.Parse()

	ctx := context.Background()
	var (
		prof profile.Profile
		err  error
	)

	switch {
	case strings.TrimSpace(*replyPath) != "":
		reply, err := os.ReadFile(*replyPath)
		if err != nil {
			exitErr(fmt.Sprintf("read reply: %v", err))
		}
		prof, err = profile.ParseReply(string(reply))
		if err != nil {
			exitErr(fmt.Sprintf("parse reply: %v", err))
		}
	case strings.TrimSpace(*resumePath) != "":
		data, err := os.ReadFile(*resumePath)
		if err != nil {
			exitErr(fmt.Sprintf("read resume: %v", err))
		}
		mediaType := submissions.ResolveMediaType(*resumePath, "", data)
		if mediaType == "" {
			exitErr("unsupported resume file type")
		}
		text, err := extract.Text(ctx, data, mediaType)
		if err != nil {
			exitErr(fmt.Sprintf("extract resume text: %v", err))
		}
		if *showText {
			fmt.Fprintln(os.Stderr, text)
		}

		client, err := buildClient(ctx, cfg, *provider, *model)
		if err != nil {
			exitErr(err.Error())
		}
		extractor := &profile.Extractor{LLM: client, Timeout: cfg.LLMTimeout}
		prof, err = extractor.Extract(ctx, text)
		if err != nil {
			exitErr(fmt.Sprintf("structure resume: %v", err))
		}
	default:
		exitErr("one of -resume or -reply is required")
	}

	pretty, err := json.MarshalIndent(prof, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	pretty = append(pretty, '\n')

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

func buildClient(ctx context.Context, cfg config.Config, provider, model string) (llm.Completer, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "openai":
		return openai.NewClient(openai.Options{APIKey: cfg.OpenAIAPIKey, Model: model, Timeout: cfg.LLMTimeout})
	case "", "gemini":
		return gemini.NewClient(ctx, gemini.Options{
			APIKey:  cfg.GeminiAPIKey,
			UseADC:  cfg.GeminiUseADC,
			Model:   model,
			Timeout: cfg.LLMTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
