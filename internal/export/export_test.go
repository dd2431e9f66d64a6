package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/docgrader/internal/model"
)

var sample = []model.GradedSubmission{
	{ID: 1, TeacherName: "T1", TeacherEmail: "t1@gmail.com", StudentName: "S1", Grade: "A", Marks: 90, Remarks: "Excellent."},
	{ID: 2, TeacherName: "T2", TeacherEmail: "t2@bu.edu", StudentName: "S2", Grade: "B", Marks: 80, Remarks: "Good."},
	{ID: 3, TeacherName: "T3", TeacherEmail: "t3@bu.edu", StudentName: "S3", Grade: "A", Marks: 70, Remarks: "Fine."},
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "json": FormatJSON, "xlsx": FormatXLSX, "pdf": FormatPDF} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func TestRenderJSON(t *testing.T) {
	data, err := Render(FormatJSON, sample)
	require.NoError(t, err)

	var out model.RecordExport
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 3, out.Count)
	assert.InDelta(t, 80.0, out.Summary.AverageMarks, 0.001)
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, out.Summary.ByGrade)
	assert.Equal(t, sample, out.Records)
}

func TestRenderJSONEmpty(t *testing.T) {
	data, err := Render(FormatJSON, nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"records": []`)
}

func TestRenderXLSX(t *testing.T) {
	data, err := Render(FormatXLSX, sample)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, []string{"2", "T2", "t2@bu.edu", "S2", "B", "80", "Good."}, rows[2])
}

func TestRenderPDF(t *testing.T) {
	data, err := Render(FormatPDF, sample)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render(Format("csv"), sample)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 40))
	long := "This remark is far too long to fit into a narrow table cell at all"
	got := truncate(long, 20)
	assert.Len(t, got, 11)
	assert.Equal(t, "...", got[len(got)-3:])
}
