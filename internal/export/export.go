// Package export renders stored grading records for download.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/docgrader/internal/model"
	"github.com/pavelanni/docgrader/internal/store"
)

// Format names a supported export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// SheetName is the worksheet holding records in XLSX exports.
const SheetName = "Records"

var headers = []string{"ID", "Teacher Name", "Teacher Email", "Student Name", "Grade", "Marks", "Remarks"}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatXLSX, FormatPDF:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want json, xlsx or pdf)", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Filename returns a download name stamped with at.
func (f Format) Filename(at time.Time) string {
	return fmt.Sprintf("records-%s.%s", at.Format("20060102-150405"), f)
}

// Render encodes recs in the given format.
func Render(f Format, recs []model.GradedSubmission) ([]byte, error) {
	switch f {
	case FormatJSON:
		return renderJSON(recs)
	case FormatXLSX:
		return renderXLSX(recs)
	case FormatPDF:
		return renderPDF(recs)
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
}

func renderJSON(recs []model.GradedSubmission) ([]byte, error) {
	data, err := json.MarshalIndent(store.BuildExport(recs, time.Now().UTC()), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}

func row(r model.GradedSubmission) []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.TeacherName,
		r.TeacherEmail,
		r.StudentName,
		r.Grade,
		strconv.Itoa(r.Marks),
		r.Remarks,
	}
}

func renderXLSX(recs []model.GradedSubmission) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, r := range recs {
		values := []any{r.ID, r.TeacherName, r.TeacherEmail, r.StudentName, r.Grade, r.Marks, r.Remarks}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

var pdfWidths = []float64{12, 32, 40, 32, 14, 14, 133}

func renderPDF(recs []model.GradedSubmission) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "GRADED SUBMISSIONS", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(pdfWidths[i], 8, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 9)
	for _, r := range recs {
		for i, v := range row(r) {
			pdf.CellFormat(pdfWidths[i], 7, truncate(tr(v), pdfWidths[i]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate keeps cell text roughly within width millimetres at 9pt.
func truncate(s string, width float64) string {
	limit := int(width / 1.8)
	if len(s) <= limit {
		return s
	}
	if limit <= 3 {
		return s[:limit]
	}
	return s[:limit-3] + "..."
}
