// Package grading turns submissions into stored, structured grades.
package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/docgrader/internal/extract"
	"github.com/pavelanni/docgrader/internal/llm"
	"github.com/pavelanni/docgrader/internal/metrics"
	"github.com/pavelanni/docgrader/internal/model"
)

var (
	// ErrEmptyTopic is returned when material is requested for a blank topic.
	ErrEmptyTopic = errors.New("topic is required")
	// ErrEmptyText is returned when there is nothing to grade.
	ErrEmptyText = errors.New("text to grade is empty")
)

// Recorder persists graded submissions.
type Recorder interface {
	Insert(rec model.GradedSubmission) (int64, error)
}

// Service runs the extract, grade, parse and persist pipeline.
type Service struct {
	store   Recorder
	eval    llm.Evaluator
	extract func(path string) (string, error)
	metrics *metrics.Metrics
}

// NewService creates a Service. m may be nil.
func NewService(store Recorder, eval llm.Evaluator, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		eval:    eval,
		extract: extract.Text,
		metrics: m,
	}
}

// GenerateMaterial returns AI-written teaching material for topic.
func (s *Service) GenerateMaterial(ctx context.Context, topic string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", ErrEmptyTopic
	}
	start := time.Now()
	material, err := s.eval.GenerateMaterial(ctx, topic)
	s.metrics.ObserveEvaluator("generate_material", err, time.Since(start))
	if err != nil {
		slog.Error("material generation failed", "topic", topic, "error", err)
		return "", err
	}
	slog.Info("generated material", "topic", topic, "chars", len(material))
	return material, nil
}

// GradeDocument extracts the text of the PDF at path, grades it and stores
// the result. Nothing is stored if any step fails.
func (s *Service) GradeDocument(ctx context.Context, who model.Identity, path string) (model.GradedSubmission, error) {
	text, err := s.extract(path)
	if err != nil {
		s.metrics.ObserveGrading(string(model.SourceDocument), metrics.OutcomeFailure)
		slog.Error("document extraction failed", "path", path, "error", err)
		return model.GradedSubmission{}, err
	}
	return s.grade(ctx, who, text, model.SourceDocument)
}

// GradeText grades already available text, such as generated material,
// and stores the result.
func (s *Service) GradeText(ctx context.Context, who model.Identity, text string) (model.GradedSubmission, error) {
	if strings.TrimSpace(text) == "" {
		s.metrics.ObserveGrading(string(model.SourceMaterial), metrics.OutcomeFailure)
		return model.GradedSubmission{}, ErrEmptyText
	}
	return s.grade(ctx, who, text, model.SourceMaterial)
}

func (s *Service) grade(ctx context.Context, who model.Identity, text string, src model.Source) (model.GradedSubmission, error) {
	start := time.Now()
	raw, err := s.eval.Grade(ctx, text)
	s.metrics.ObserveEvaluator("grade", err, time.Since(start))
	if err != nil {
		s.metrics.ObserveGrading(string(src), metrics.OutcomeFailure)
		slog.Error("grading call failed", "source", src, "student", who.StudentName, "error", err)
		return model.GradedSubmission{}, fmt.Errorf("evaluate submission: %w", err)
	}

	res := Parse(raw)
	rec := who.Submission(res.Grade, res.Marks, res.Remarks)
	id, err := s.store.Insert(rec)
	if err != nil {
		s.metrics.ObserveGrading(string(src), metrics.OutcomeFailure)
		return model.GradedSubmission{}, fmt.Errorf("save record: %w", err)
	}
	rec.ID = id

	s.metrics.ObserveGrading(string(src), metrics.OutcomeSuccess)
	s.metrics.ObserveMarks(rec.Marks)
	slog.Info("graded submission", "id", id, "source", src, "student", who.StudentName,
		"grade", rec.Grade, "marks", rec.Marks)
	return rec, nil
}
