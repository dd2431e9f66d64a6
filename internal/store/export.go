package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/docgrader/internal/model"
)

// ExportRecords builds an export-ready view of every stored record.
func (s *Store) ExportRecords() (model.RecordExport, error) {
	recs, err := s.GetAll()
	if err != nil {
		return model.RecordExport{}, fmt.Errorf("list records: %w", err)
	}
	return BuildExport(recs, time.Now()), nil
}

// BuildExport summarises recs into a RecordExport stamped with at.
func BuildExport(recs []model.GradedSubmission, at time.Time) model.RecordExport {
	byGrade := make(map[string]int)
	total := 0
	for _, r := range recs {
		byGrade[r.Grade]++
		total += r.Marks
	}

	var avg float64
	if len(recs) > 0 {
		avg = float64(total) / float64(len(recs))
	}
	if recs == nil {
		recs = []model.GradedSubmission{}
	}

	return model.RecordExport{
		ExportedAt: at,
		Count:      len(recs),
		Summary: model.ExportSummary{
			AverageMarks: avg,
			ByGrade:      byGrade,
		},
		Records: recs,
	}
}
