package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "students.db"

// Store persists graded submissions and admin accounts in a SQLite file.
// Every operation opens its own connection and closes it before returning.
type Store struct {
	path string
	open func() (*sqlx.DB, error)
}

// New returns a Store for dbPath and ensures the schema exists.
func New(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = DefaultPath
	}
	s := &Store{path: dbPath}
	s.open = s.openFile
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) openFile() (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", s.path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// withDB runs fn on a fresh connection and releases it on every exit path.
func (s *Store) withDB(fn func(db *sqlx.DB) error) (err error) {
	db, err := s.open()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close database: %w", cerr)
		}
	}()
	return fn(db)
}

// Init creates the tables if they do not exist. It is safe to call on
// every start.
func (s *Store) Init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		teacher_name TEXT,
		teacher_email TEXT,
		student_name TEXT,
		grade TEXT,
		marks INTEGER,
		remarks TEXT
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);
	`
	return s.withDB(func(db *sqlx.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}
