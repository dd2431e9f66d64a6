package model

import "time"

// RecordExport is the top-level JSON structure for a records export.
type RecordExport struct {
	ExportedAt time.Time          `json:"exported_at"`
	Count      int                `json:"count"`
	Summary    ExportSummary      `json:"summary"`
	Records    []GradedSubmission `json:"records"`
}

// ExportSummary aggregates marks across exported records.
type ExportSummary struct {
	AverageMarks float64        `json:"average_marks"`
	ByGrade      map[string]int `json:"by_grade"`
}
