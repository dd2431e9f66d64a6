// Package form validates what users type before it reaches the pipeline.
package form

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/docgrader/internal/model"
)

var (
	// ErrMissingFields is returned when a required identity field is blank.
	ErrMissingFields = errors.New("teacher name, email and student name are required")
	// ErrInvalidEmail is returned for emails outside the allowed domains.
	ErrInvalidEmail = errors.New("email must end with @gmail.com or @bu.edu")
	// ErrInvalidRecordID is returned for record ids that are not plain digits.
	ErrInvalidRecordID = errors.New("record id must be numeric")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@(gmail\.com|bu\.edu)$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("teacheremail", func(fl validator.FieldLevel) bool {
		return ValidateEmail(fl.Field().String())
	})
	return v
}

// ValidateEmail reports whether email is an accepted teacher address.
func ValidateEmail(email string) bool {
	if email == "" {
		return false
	}
	return emailPattern.MatchString(email)
}

// Submission is the identity block of the grading form.
type Submission struct {
	TeacherName  string `validate:"required"`
	TeacherEmail string `validate:"required,teacheremail"`
	StudentName  string `validate:"required"`
}

// Validate checks required fields first, then the email domain. Values are
// checked as typed: a blank-looking name passes, a padded email does not.
func (s Submission) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return ErrMissingFields
		}
	}
	return ErrInvalidEmail
}

// Identity returns the identity carried by the form, exactly as typed.
func (s Submission) Identity() model.Identity {
	return model.Identity{
		TeacherName:  s.TeacherName,
		TeacherEmail: s.TeacherEmail,
		StudentName:  s.StudentName,
	}
}

// ParseRecordID accepts only a non-empty run of ASCII digits.
func ParseRecordID(s string) (int64, error) {
	if s == "" {
		return 0, ErrInvalidRecordID
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidRecordID
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidRecordID
	}
	return id, nil
}
