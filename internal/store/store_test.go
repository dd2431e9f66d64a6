package store

import (
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/pavelanni/docgrader/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "students.db"))
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	return s
}

func insertTestRecord(t *testing.T, s *Store, student, grade string, marks int) int64 {
	t.Helper()
	id, err := s.Insert(model.GradedSubmission{
		TeacherName:  "Ms. Frizzle",
		TeacherEmail: "frizzle@bu.edu",
		StudentName:  student,
		Grade:        grade,
		Marks:        marks,
		Remarks:      "remarks for " + student,
	})
	if err != nil {
		t.Fatalf("insertTestRecord: %v", err)
	}
	return id
}

func TestInsertAndGetLatest(t *testing.T) {
	s := newTestStore(t)

	latest, err := s.GetLatest()
	if err != nil {
		t.Fatalf("GetLatest on empty table: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil latest on empty table, got %+v", latest)
	}

	id, err := s.Insert(model.GradedSubmission{
		TeacherName:  "t",
		TeacherEmail: "e@gmail.com",
		StudentName:  "s",
		Grade:        "A",
		Marks:        90,
		Remarks:      "Great",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != 1 {
		t.Errorf("expected first id 1, got %d", id)
	}

	latest, err = s.GetLatest()
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	want := model.GradedSubmission{ID: 1, TeacherName: "t", TeacherEmail: "e@gmail.com", StudentName: "s", Grade: "A", Marks: 90, Remarks: "Great"}
	if *latest != want {
		t.Errorf("GetLatest = %+v, want %+v", *latest, want)
	}

	id2 := insertTestRecord(t, s, "second", "B", 80)
	if id2 != id+1 {
		t.Errorf("expected id %d, got %d", id+1, id2)
	}
	latest, _ = s.GetLatest()
	if latest.ID != id2 || latest.StudentName != "second" {
		t.Errorf("expected latest to be the second record, got %+v", latest)
	}
}

func TestInsertIgnoresCallerID(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Insert(model.GradedSubmission{ID: 42, StudentName: "x", Grade: "C", Marks: 70})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != 1 {
		t.Errorf("expected store-assigned id 1, got %d", id)
	}
}

func TestDeleteLatest(t *testing.T) {
	s := newTestStore(t)

	// Empty table: no error, still empty.
	if err := s.DeleteLatest(); err != nil {
		t.Fatalf("DeleteLatest on empty table: %v", err)
	}
	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 records, got %d", count)
	}

	insertTestRecord(t, s, "a", "A", 95)
	insertTestRecord(t, s, "b", "B", 85)
	if err := s.DeleteLatest(); err != nil {
		t.Fatalf("DeleteLatest: %v", err)
	}
	recs, _ := s.GetAll()
	if len(recs) != 1 || recs[0].StudentName != "a" {
		t.Errorf("expected only record 'a' to remain, got %+v", recs)
	}
}

func TestDeleteByID(t *testing.T) {
	s := newTestStore(t)
	id1 := insertTestRecord(t, s, "a", "A", 95)
	id2 := insertTestRecord(t, s, "b", "B", 85)

	if err := s.DeleteByID(id1); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	// Missing id is a silent no-op.
	if err := s.DeleteByID(9999); err != nil {
		t.Fatalf("DeleteByID missing: %v", err)
	}

	recs, err := s.GetAll()
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != id2 {
		t.Errorf("expected only id %d, got %+v", id2, recs)
	}
}

func TestClearAll(t *testing.T) {
	s := newTestStore(t)
	insertTestRecord(t, s, "a", "A", 95)
	insertTestRecord(t, s, "b", "B", 85)

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	recs, err := s.GetAll()
	if err != nil {
		t.Fatalf("GetAll after clear: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected empty table, got %d rows", len(recs))
	}

	// Schema survives.
	insertTestRecord(t, s, "c", "C", 70)
	count, _ := s.Count()
	if count != 1 {
		t.Errorf("expected 1 record after re-insert, got %d", count)
	}
}

func TestGetAllStorageOrder(t *testing.T) {
	s := newTestStore(t)

	recs, err := s.GetAll()
	if err != nil {
		t.Fatalf("GetAll on empty table: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no rows, got %d", len(recs))
	}

	for _, name := range []string{"a", "b", "c"} {
		insertTestRecord(t, s, name, "A", 90)
	}
	recs, err = s.GetAll()
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i-1].ID > recs[i].ID {
			t.Errorf("rows not in insertion order: %+v", recs)
		}
	}
}

func TestIDsNeverReused(t *testing.T) {
	s := newTestStore(t)

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, insertTestRecord(t, s, "s", "B", 80))
	}
	maxID := ids[len(ids)-1]

	// Delete the top of the table and something in the middle.
	if err := s.DeleteLatest(); err != nil {
		t.Fatalf("DeleteLatest: %v", err)
	}
	if err := s.DeleteByID(ids[2]); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}

	next := insertTestRecord(t, s, "next", "A", 99)
	if next <= maxID {
		t.Errorf("id %d reused or lower than previous max %d", next, maxID)
	}

	// Even an emptied table keeps counting.
	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	after := insertTestRecord(t, s, "after", "A", 99)
	if after <= next {
		t.Errorf("id %d reused after clear, previous %d", after, next)
	}

	seen := make(map[int64]bool)
	recs, _ := s.GetAll()
	for _, r := range recs {
		if seen[r.ID] {
			t.Errorf("duplicate id %d", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestInitIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.db")
	s1, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	insertTestRecord(t, s1, "kept", "A", 90)

	s2, err := New(path)
	if err != nil {
		t.Fatalf("New again: %v", err)
	}
	if err := s2.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	latest, err := s2.GetLatest()
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest == nil || latest.StudentName != "kept" {
		t.Errorf("expected existing record to survive re-init, got %+v", latest)
	}
}

func TestMarksNotClamped(t *testing.T) {
	s := newTestStore(t)
	insertTestRecord(t, s, "noisy", "A", 85100)
	latest, _ := s.GetLatest()
	if latest.Marks != 85100 {
		t.Errorf("expected marks 85100, got %d", latest.Marks)
	}
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	id, err := s.CreateUser(model.User{Username: "admin", PasswordHash: "hash", Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByUsername("admin")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id || !u.Active || u.PasswordHash != "hash" {
		t.Fatalf("unexpected user %+v", u)
	}

	if err := s.SetUserPassword("admin", "newhash"); err != nil {
		t.Fatalf("SetUserPassword: %v", err)
	}
	u, _ = s.GetUserByID(id)
	if u.PasswordHash != "newhash" {
		t.Errorf("expected updated hash, got %q", u.PasswordHash)
	}

	missing, err := s.GetUserByUsername("nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing user")
	}

	if _, err := s.CreateUser(model.User{Username: "admin", PasswordHash: "x", Active: true}); err == nil {
		t.Error("expected duplicate username to fail")
	}
}

func TestAuthSessions(t *testing.T) {
	s := newTestStore(t)
	uid, _ := s.CreateUser(model.User{Username: "admin", PasswordHash: "h", Active: true})

	token, err := s.CreateAuthSession(uid)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64-char token, got %d", len(token))
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != uid {
		t.Fatalf("unexpected session %+v", sess)
	}
	if !sess.ExpiresAt.After(time.Now()) {
		t.Error("session should expire in the future")
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, _ = s.GetAuthSession(token)
	if sess != nil {
		t.Error("expected session to be gone")
	}

	if _, err := s.CleanupExpiredSessions(); err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
}

func TestAuthSessionTokenNotStored(t *testing.T) {
	s := newTestStore(t)
	uid, _ := s.CreateUser(model.User{Username: "admin", PasswordHash: "h", Active: true})
	token, err := s.CreateAuthSession(uid)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}

	sess, err := s.GetAuthSession(token)
	if err != nil || sess == nil {
		t.Fatalf("GetAuthSession: %v, %v", sess, err)
	}
	if sess.ID == token {
		t.Error("raw token must not be used as the stored key")
	}
	if got, _ := s.GetAuthSession(sess.ID); got != nil {
		t.Error("the stored key must not work as a token")
	}
}

func TestRevokeUserSessions(t *testing.T) {
	s := newTestStore(t)
	uid, _ := s.CreateUser(model.User{Username: "admin", PasswordHash: "h", Active: true})
	t1, _ := s.CreateAuthSession(uid)
	t2, _ := s.CreateAuthSession(uid)

	if err := s.RevokeUserSessions(uid); err != nil {
		t.Fatalf("RevokeUserSessions: %v", err)
	}
	for _, tok := range []string{t1, t2} {
		if sess, _ := s.GetAuthSession(tok); sess != nil {
			t.Errorf("session %s survived revocation", tok[:8])
		}
	}
}

func TestBuildExport(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	empty := BuildExport(nil, at)
	if empty.Count != 0 || empty.Records == nil || empty.Summary.AverageMarks != 0 {
		t.Errorf("unexpected empty export %+v", empty)
	}

	exp := BuildExport([]model.GradedSubmission{
		{ID: 1, Grade: "A", Marks: 90},
		{ID: 2, Grade: "A", Marks: 80},
		{ID: 3, Grade: "C", Marks: 70},
	}, at)
	if exp.Count != 3 {
		t.Errorf("expected count 3, got %d", exp.Count)
	}
	if exp.Summary.AverageMarks != 80 {
		t.Errorf("expected average 80, got %f", exp.Summary.AverageMarks)
	}
	if exp.Summary.ByGrade["A"] != 2 || exp.Summary.ByGrade["C"] != 1 {
		t.Errorf("unexpected grade histogram %v", exp.Summary.ByGrade)
	}
	if !exp.ExportedAt.Equal(at) {
		t.Errorf("unexpected timestamp %v", exp.ExportedAt)
	}
}

// newMockStore returns a Store whose connections come from sqlmock.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	s := &Store{path: "mock", open: func() (*sqlx.DB, error) {
		return sqlx.NewDb(db, "sqlmock"), nil
	}}
	return s, mock
}

func TestConnectionReleasedOnError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("disk I/O error")

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM students`)).WillReturnError(boom)
	mock.ExpectClose()

	err := s.ClearAll()
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("connection not released: %v", err)
	}
}

func TestConnectionReleasedOnSuccess(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM students WHERE id = ?`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	if err := s.DeleteByID(7); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetLatestEmptyViaMock(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM students ORDER BY id DESC LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_name", "teacher_email", "student_name", "grade", "marks", "remarks"}))
	mock.ExpectClose()

	rec, err := s.GetLatest()
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record, got %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOpenFailure(t *testing.T) {
	s := &Store{path: "broken", open: func() (*sqlx.DB, error) {
		return nil, errors.New("no such file")
	}}
	if _, err := s.GetAll(); err == nil {
		t.Fatal("expected open failure to surface")
	}
}
