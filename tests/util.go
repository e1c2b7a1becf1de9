package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/classforms/core"
	"github.com/trezcool/classforms/core/form"
	"github.com/trezcool/classforms/core/user"
	"github.com/trezcool/classforms/storage/database"
)

// Password passes the password policy for every user created by the tests.
const Password = "Xq9#Zk7!Wm"

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateTeacher(t *testing.T, repo user.Repository, name, email string) user.User {
	return CreateUser(t, repo, name, email, Password, []string{user.RoleTeacher}, true)
}

func CreateStudent(t *testing.T, repo user.Repository, name, email string) user.User {
	return CreateUser(t, repo, name, email, Password, []string{user.RoleStudent}, true)
}

// NewValidator returns a validator with every validator and translation of the app registered.
func NewValidator() *validator.Validate {
	validate, _ := NewValidatorWithTranslator()
	return validate
}

func NewValidatorWithTranslator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	form.InitValidators(validate, translator)
	return validate, translator
}

// NewConfig returns the TEST configuration.
func NewConfig(t *testing.T) *core.Config {
	if err := os.Setenv("ENV", "TEST"); err != nil {
		t.Fatalf("os.Setenv() failed: %v", err)
	}
	return core.NewConfig()
}

// PrepareDB opens and migrates the database described by the TEST_DATABASE_* environment.
// The test is skipped when TEST_DATABASE_HOST is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}
	conf := NewConfig(t)
	conf.Database.InMemory = false

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		t.Fatalf("CreateIfNotExist() failed: %v", err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	ResetDB(t, db)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ResetDB truncates every table.
func ResetDB(t *testing.T, db *sqlx.DB) {
	if _, err := db.Exec(`TRUNCATE TABLE grade, answer, form_response, form_assignment, question_option, question, form, "user" CASCADE`); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records log entries.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]LogEntry, 0)
	for _, e := range l.entries {
		if e.Level == level {
			entries = append(entries, e)
		}
	}
	return entries
}

// FileStorage keeps saved files in memory.
type FileStorage struct {
	mu    sync.Mutex
	Files map[string][]byte
	Err   error // returned by Save when set
}

var _ core.FileStorage = (*FileStorage)(nil)

func NewFileStorage() *FileStorage {
	return &FileStorage{Files: make(map[string][]byte)}
}

func (s *FileStorage) Save(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Files[key] = buf.Bytes()
	return fmt.Sprintf("https://files.test/%s", key), nil
}

// Notifier records grade notifications.
type Notifier struct {
	mu   sync.Mutex
	Sent []form.GradeNotification
}

var _ form.Notifier = (*Notifier)(nil)

func (n *Notifier) NotifyGrade(gn form.GradeNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, gn)
}

func (n *Notifier) Notifications() []form.GradeNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	sent := make([]form.GradeNotification, len(n.Sent))
	copy(sent, n.Sent)
	return sent
}
