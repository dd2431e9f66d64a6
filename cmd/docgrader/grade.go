package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pavelanni/docgrader/internal/form"
	"github.com/pavelanni/docgrader/internal/grading"
	"github.com/pavelanni/docgrader/internal/metrics"
	"github.com/pavelanni/docgrader/internal/store"
)

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade a PDF or a text file and store the result",
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.StringP("file", "f", "", "PDF document to grade")
	f.String("text-file", "", "Plain-text file to grade instead of a PDF")
	f.String("teacher-name", "", "Teacher name (required)")
	f.String("teacher-email", "", "Teacher email, @gmail.com or @bu.edu (required)")
	f.String("student-name", "", "Student name (required)")
	addDBFlag(f)
	addLLMFlags(f)
	addLogFlags(f)

	cmd.MarkFlagsMutuallyExclusive("file", "text-file")
	cmd.MarkFlagsOneRequired("file", "text-file")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate teaching material for a topic",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.StringP("topic", "t", "", "Topic for the material (required)")
	addLLMFlags(f)
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runGrade(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmdContext(cmd)

	sub := form.Submission{
		TeacherName:  v.GetString("teacher-name"),
		TeacherEmail: v.GetString("teacher-email"),
		StudentName:  v.GetString("student-name"),
	}
	if err := sub.Validate(); err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	eval, err := newEvaluator(ctx, v)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	svc := grading.NewService(db, eval, metrics.New())

	var rec any
	if path := v.GetString("file"); path != "" {
		rec, err = svc.GradeDocument(ctx, sub.Identity(), path)
	} else {
		text, rerr := os.ReadFile(v.GetString("text-file"))
		if rerr != nil {
			return fmt.Errorf("read text file: %w", rerr)
		}
		rec, err = svc.GradeText(ctx, sub.Identity(), string(text))
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmdContext(cmd)

	eval, err := newEvaluator(ctx, v)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	// Nothing is recorded when only generating.
	svc := grading.NewService(nil, eval, nil)
	material, err := svc.GenerateMaterial(ctx, v.GetString("topic"))
	if errors.Is(err, grading.ErrEmptyTopic) {
		return fmt.Errorf("--topic must not be blank")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), material)
	return err
}
