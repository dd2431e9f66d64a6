package model

import (
	"context"
	"time"
)

// Default values used when an evaluator response omits a field.
const (
	DefaultGrade   = "N/A"
	DefaultMarks   = 0
	DefaultRemarks = "No remarks provided."
)

// GradedSubmission is one persisted grading event.
type GradedSubmission struct {
	ID           int64  `db:"id" json:"id"`
	TeacherName  string `db:"teacher_name" json:"teacher_name"`
	TeacherEmail string `db:"teacher_email" json:"teacher_email"`
	StudentName  string `db:"student_name" json:"student_name"`
	Grade        string `db:"grade" json:"grade"`
	Marks        int    `db:"marks" json:"marks"`
	Remarks      string `db:"remarks" json:"remarks"`
}

// Identity names who submitted the work and whose work it is.
type Identity struct {
	TeacherName  string
	TeacherEmail string
	StudentName  string
}

// Submission builds an unsaved record for this identity.
func (i Identity) Submission(grade string, marks int, remarks string) GradedSubmission {
	return GradedSubmission{
		TeacherName:  i.TeacherName,
		TeacherEmail: i.TeacherEmail,
		StudentName:  i.StudentName,
		Grade:        grade,
		Marks:        marks,
		Remarks:      remarks,
	}
}

// Source tells how the graded text was obtained.
type Source string

const (
	SourceDocument Source = "document"
	SourceMaterial Source = "material"
)

// User is an administrator account.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// ViewState is the screen the web UI is currently showing.
type ViewState string

const (
	StateCollectingInput ViewState = "collecting_input"
	StateShowingResult   ViewState = "showing_result"
	StateResetting       ViewState = "resetting"
)

// ViewEvent drives ViewState transitions.
type ViewEvent string

const (
	EventGraded   ViewEvent = "graded"
	EventContinue ViewEvent = "continue"
	EventRender   ViewEvent = "render"
)

// ParseViewState maps a stored value back to a state.
// Unknown values fall back to StateCollectingInput.
func ParseViewState(s string) ViewState {
	switch ViewState(s) {
	case StateShowingResult:
		return StateShowingResult
	case StateResetting:
		return StateResetting
	default:
		return StateCollectingInput
	}
}

// Next returns the state reached from s on event ev.
// Events that do not apply to s leave it unchanged.
func (s ViewState) Next(ev ViewEvent) ViewState {
	switch {
	case ev == EventGraded:
		return StateShowingResult
	case s == StateShowingResult && ev == EventContinue:
		return StateResetting
	case s == StateResetting && ev == EventRender:
		return StateCollectingInput
	}
	return s
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	BasePath      string // URL prefix for sub-path deployments
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	MaxUploadSize int64  // bytes accepted for a PDF upload
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
