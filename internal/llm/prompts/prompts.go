package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

// System instructions sent alongside the user prompt.
const (
	SystemMaterial = "You are an expert educational content creator."
	SystemGrader   = "You are an assignment evaluator."
)

// Output budgets, in tokens, for each kind of call.
const (
	MaterialMaxTokens = 700
	GradeMaxTokens    = 300
)

// maxSubmissionRunes bounds the submission text embedded in a grading prompt.
const maxSubmissionRunes = 10000

var (
	submissionTagRegex = regexp.MustCompile(`(?i)</?\s*submission\b[^>]*>`)
	systemTagRegex     = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// Variant represents a grading prompt variant.
type Variant string

const (
	// Strict is a demanding grading variant.
	Strict Variant = "strict"
	// Standard is the default grading variant.
	Standard Variant = "standard"
	// Lenient is an encouraging grading variant.
	Lenient Variant = "lenient"
)

var validVariants = map[Variant]bool{
	Strict:   true,
	Standard: true,
	Lenient:  true,
}

var (
	loadOnce         sync.Once
	loadErr          error
	materialTemplate *template.Template
	gradeTemplates   map[Variant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[Variant(v)]
}

// MaterialData holds template data for material generation prompts.
type MaterialData struct {
	Topic string
}

// GradeData holds template data for grading prompts.
type GradeData struct {
	Text string
}

// Load parses the embedded prompt templates. It runs once; later calls
// return the first result.
func Load() error {
	loadOnce.Do(func() {
		loadErr = load(templateFS)
	})
	return loadErr
}

func load(fsys fs.FS) error {
	tmpl, err := parseFile(fsys, "templates/material.txt")
	if err != nil {
		return err
	}
	grades := make(map[Variant]*template.Template)
	for _, v := range []Variant{Strict, Standard, Lenient} {
		t, err := parseFile(fsys, "templates/grade_"+string(v)+".txt")
		if err != nil {
			return err
		}
		grades[v] = t
	}
	materialTemplate = tmpl
	gradeTemplates = grades
	return nil
}

func parseFile(fsys fs.FS, name string) (*template.Template, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.New("failed to read prompt file " + name + ": " + err.Error())
	}
	t, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, errors.New("failed to parse prompt template " + name + ": " + err.Error())
	}
	return t, nil
}

// BuildMaterialPrompt builds the user prompt asking for teaching material on topic.
func BuildMaterialPrompt(topic string) (string, error) {
	if err := Load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	var buf bytes.Buffer
	if err := materialTemplate.Execute(&buf, MaterialData{Topic: strings.TrimSpace(topic)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildGradePrompt builds the grading prompt for text using the given variant.
func BuildGradePrompt(variant Variant, text string) (string, error) {
	if err := Load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	tmpl, ok := gradeTemplates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, GradeData{Text: sanitizeSubmission(text)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeSubmission(text string) string {
	text = submissionTagRegex.ReplaceAllString(text, "")
	text = systemTagRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if text == "" {
		return "[No text provided]"
	}

	if utf8.RuneCountInString(text) > maxSubmissionRunes {
		runes := []rune(text)
		text = string(runes[:maxSubmissionRunes]) + "\n\n[Submission truncated due to length]"
	}

	return text
}
