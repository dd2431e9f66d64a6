package grading

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Result
	}{
		{"empty", "", Result{"N/A", 0, "No remarks provided."}},
		{
			"happy path",
			"Grade: B\nMarks: 85\nRemarks: Good effort but needs improvement.",
			Result{"B", 85, "Good effort but needs improvement."},
		},
		{
			"case insensitive prefixes",
			"GRADE: C\nmarks: 70\nREMARKS: ok",
			Result{"C", 70, "ok"},
		},
		{
			"digit filtering is not clamped",
			"Grade: A\nMarks: 85/100\nRemarks: Fine.",
			Result{"A", 85100, "Fine."},
		},
		{
			"decimal point and sign dropped",
			"Marks: -72.5",
			Result{"N/A", 725, "No remarks provided."},
		},
		{
			"surrounding commentary ignored",
			"Here is my evaluation.\n\n  Grade: A-  \nMarks: 91\nRemarks: Insightful.\nThanks!",
			Result{"A-", 91, "Insightful."},
		},
		{
			"missing fields keep defaults",
			"Grade: D",
			Result{"D", 0, "No remarks provided."},
		},
		{
			"last line wins",
			"Grade: B\nGrade: A\nRemarks: first\nRemarks: second",
			Result{"A", 0, "second"},
		},
		{
			"only first colon splits",
			"Remarks: Note: cite sources.",
			Result{"N/A", 0, "Note: cite sources."},
		},
		{
			"crlf line endings",
			"Grade: B\r\nMarks: 80\r\nRemarks: ok\r\n",
			Result{"B", 80, "ok"},
		},
		{
			"empty values after colon",
			"Grade:\nRemarks:",
			Result{"", 0, ""},
		},
		{
			"prefix must start the line",
			"Final Grade: A\nYour marks: 90",
			Result{"N/A", 0, "No remarks provided."},
		},
		{
			"no space after colon",
			"grade:B+\nmarks:88",
			Result{"B+", 88, "No remarks provided."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

// A later marks line without digits does not fall back to an earlier valid
// value; marks go back to the default. This pins current behavior.
func TestParseMarksResetCharacterization(t *testing.T) {
	got := Parse("Marks: 85\nMarks: eighty")
	if got.Marks != 0 {
		t.Errorf("expected marks reset to 0, got %d", got.Marks)
	}

	got = Parse("Marks: eighty\nMarks: 85")
	if got.Marks != 85 {
		t.Errorf("expected later valid marks 85, got %d", got.Marks)
	}
}

func TestParseMarksOverflow(t *testing.T) {
	got := Parse("Marks: 99999999999999999999999999")
	if got.Marks != 0 {
		t.Errorf("expected overflowing marks to reset to 0, got %d", got.Marks)
	}
}

func TestParseMarks(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"85", 85, true},
		{"85/100", 85100, true},
		{"  7 0 ", 70, true},
		{"", 0, false},
		{"N/A", 0, false},
		{"٨٥", 85, true},
		{"８５/１００", 85100, true},
		{"۹۰ points", 90, true},
		{"𝟗𝟓", 95, true},
		{"10²", 0, false},
		{"①", 0, false},
		{"½", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseMarks(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseMarks(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseControlLineBreaks(t *testing.T) {
	got := Parse("Grade: B\x1eMarks: 90\x1cRemarks: fine\x1dextra")
	want := Result{Grade: "B", Marks: 90, Remarks: "fine"}
	if got != want {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}

func TestParseNonASCIIMarks(t *testing.T) {
	got := Parse("Grade: A\nMarks: ٨٥\nRemarks: ok")
	if got.Marks != 85 {
		t.Errorf("expected Arabic-Indic marks to parse as 85, got %d", got.Marks)
	}
	got = Parse("Marks: 90\nMarks: 9²")
	if got.Marks != 0 {
		t.Errorf("expected superscript digit to reset marks to 0, got %d", got.Marks)
	}
}
