package store

import (
	"database/sql"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/pavelanni/docgrader/internal/model"
)

const recordColumns = `id, teacher_name, teacher_email, student_name, grade, marks, remarks`

// Insert appends a graded submission and returns the id the database
// assigned to it. rec.ID is ignored.
func (s *Store) Insert(rec model.GradedSubmission) (int64, error) {
	var id int64
	err := s.withDB(func(db *sqlx.DB) error {
		res, err := db.Exec(
			`INSERT INTO students (teacher_name, teacher_email, student_name, grade, marks, remarks)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.TeacherName, rec.TeacherEmail, rec.StudentName, rec.Grade, rec.Marks, rec.Remarks,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		slog.Error("failed to insert record", "student", rec.StudentName, "error", err)
		return 0, err
	}
	slog.Info("inserted record", "id", id, "teacher", rec.TeacherName, "student", rec.StudentName,
		"grade", rec.Grade, "marks", rec.Marks)
	return id, nil
}

// DeleteLatest removes the row with the highest id. It is a no-op on an
// empty table.
func (s *Store) DeleteLatest() error {
	return s.withDB(func(db *sqlx.DB) error {
		_, err := db.Exec(`DELETE FROM students WHERE id = (SELECT MAX(id) FROM students)`)
		return err
	})
}

// DeleteByID removes the row with the given id. A missing id is not an error.
func (s *Store) DeleteByID(id int64) error {
	return s.withDB(func(db *sqlx.DB) error {
		_, err := db.Exec(`DELETE FROM students WHERE id = ?`, id)
		return err
	})
}

// ClearAll removes every row; the table itself is kept.
func (s *Store) ClearAll() error {
	return s.withDB(func(db *sqlx.DB) error {
		_, err := db.Exec(`DELETE FROM students`)
		return err
	})
}

// GetAll returns every row in the order the database yields them.
// No ORDER BY is applied.
func (s *Store) GetAll() ([]model.GradedSubmission, error) {
	var recs []model.GradedSubmission
	err := s.withDB(func(db *sqlx.DB) error {
		return db.Select(&recs, `SELECT `+recordColumns+` FROM students`)
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// GetLatest returns the row with the highest id, or nil if the table is empty.
func (s *Store) GetLatest() (*model.GradedSubmission, error) {
	var rec model.GradedSubmission
	err := s.withDB(func(db *sqlx.DB) error {
		return db.Get(&rec, `SELECT `+recordColumns+` FROM students ORDER BY id DESC LIMIT 1`)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	var count int
	err := s.withDB(func(db *sqlx.DB) error {
		return db.Get(&count, `SELECT COUNT(*) FROM students`)
	})
	return count, err
}
