// Package views renders the HTML pages of the web UI.
package views

import (
	"context"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/docgrader/internal/i18n"
	"github.com/pavelanni/docgrader/internal/model"
)

// FormData is what the grading form shows and re-shows after an error.
type FormData struct {
	TeacherName  string
	TeacherEmail string
	StudentName  string
	Topic        string
	Material     string
	Error        string
}

// AdminData is the state of the admin panel.
type AdminData struct {
	Records []model.GradedSubmission
	Message string
	Error   string
}

var recordColumns = []string{"ID", "TeacherName", "TeacherEmail", "StudentName", "Grade", "Marks", "Remarks"}

var exportFormats = []string{"json", "xlsx", "pdf"}

func t(ctx context.Context, id string) string { return appI18n.T(ctx, id) }

// href prefixes p with the deployment base path.
func href(ctx context.Context, p string) templ.SafeURL {
	return templ.SafeURL(model.BasePathFromContext(ctx) + p)
}
