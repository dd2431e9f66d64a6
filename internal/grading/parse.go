package grading

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pavelanni/docgrader/internal/model"
)

// Result is the structured form of an evaluator response.
type Result struct {
	Grade   string
	Marks   int
	Remarks string
}

// Parse scans raw line by line and extracts the grade, marks and remarks.
//
// Lines are trimmed and matched case-insensitively against the prefixes
// "grade:", "marks:" and "remarks:", in that order. Later lines overwrite
// earlier ones. Missing fields keep their defaults. For marks only the
// digits after the colon are kept, so "85/100" becomes 85100 and "٨٥"
// becomes 85; a marks line with no usable digits resets marks to 0 even if
// an earlier line parsed.
func Parse(raw string) Result {
	res := Result{
		Grade:   model.DefaultGrade,
		Marks:   model.DefaultMarks,
		Remarks: model.DefaultRemarks,
	}

	for _, line := range strings.FieldsFunc(raw, isLineBreak) {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "grade:"):
			res.Grade = afterColon(line)
		case strings.HasPrefix(lower, "marks:"):
			marks, ok := parseMarks(afterColon(line))
			if !ok {
				marks = model.DefaultMarks
			}
			res.Marks = marks
		case strings.HasPrefix(lower, "remarks:"):
			res.Remarks = afterColon(line)
		}
	}
	return res
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

func afterColon(line string) string {
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value)
}

// parseMarks keeps every digit character of s and reads them as a decimal
// number. Decimal digits of any script count with their value. Digit-like
// characters without a decimal value (superscripts, circled digits) make the
// whole value unusable.
func parseMarks(s string) (int, bool) {
	var digits strings.Builder
	for _, r := range s {
		if d, ok := decimalValue(r); ok {
			digits.WriteByte(byte('0' + d))
			continue
		}
		if unicode.Is(digitLike, r) {
			return 0, false
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// decimalValue maps a decimal digit (category Nd) to its value. Nd ranges
// are runs of complete 0-9 sequences.
func decimalValue(r rune) (int, bool) {
	if r >= '0' && r <= '9' {
		return int(r - '0'), true
	}
	for _, rg := range unicode.Nd.R16 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) && rg.Stride == 1 {
			return int(r-rune(rg.Lo)) % 10, true
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) && rg.Stride == 1 {
			return int(r-rune(rg.Lo)) % 10, true
		}
	}
	return 0, false
}

// digitLike holds characters with a digit value that are not decimal
// digits.
var digitLike = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00b2, Hi: 0x00b3, Stride: 1},
		{Lo: 0x00b9, Hi: 0x00b9, Stride: 1},
		{Lo: 0x1369, Hi: 0x1371, Stride: 1},
		{Lo: 0x19da, Hi: 0x19da, Stride: 1},
		{Lo: 0x2070, Hi: 0x2070, Stride: 1},
		{Lo: 0x2074, Hi: 0x2079, Stride: 1},
		{Lo: 0x2080, Hi: 0x2089, Stride: 1},
		{Lo: 0x2460, Hi: 0x2468, Stride: 1},
		{Lo: 0x2474, Hi: 0x247c, Stride: 1},
		{Lo: 0x2488, Hi: 0x2490, Stride: 1},
		{Lo: 0x24ea, Hi: 0x24ea, Stride: 1},
		{Lo: 0x24f5, Hi: 0x24fd, Stride: 1},
		{Lo: 0x24ff, Hi: 0x24ff, Stride: 1},
		{Lo: 0x2776, Hi: 0x277e, Stride: 1},
		{Lo: 0x2780, Hi: 0x2788, Stride: 1},
		{Lo: 0x278a, Hi: 0x2792, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x10a40, Hi: 0x10a43, Stride: 1},
		{Lo: 0x10e60, Hi: 0x10e68, Stride: 1},
		{Lo: 0x11052, Hi: 0x1105a, Stride: 1},
		{Lo: 0x1f100, Hi: 0x1f10a, Stride: 1},
	},
}
