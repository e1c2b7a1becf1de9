package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/classforms/core/form"
	"github.com/trezcool/classforms/core/user"
)

type (
	// DB is an in-memory store shared by the user and form repositories.
	// Transactions work on a copy of the tables, swapped in on commit.
	DB struct {
		mu     sync.RWMutex
		tables *tables
	}

	assignmentKey struct {
		formID, studentID string
	}

	gradeKey struct {
		teacherID, studentID, formID string
	}

	tables struct {
		users       map[string]user.User
		forms       map[string]form.Form
		questions   map[string]form.Question
		assignments map[assignmentKey]time.Time
		responses   map[string]form.Response
		answers     map[string]form.Answer
		grades      map[gradeKey]form.Grade
	}
)

func Open() *DB {
	return &DB{tables: newTables()}
}

func newTables() *tables {
	return &tables{
		users:       make(map[string]user.User),
		forms:       make(map[string]form.Form),
		questions:   make(map[string]form.Question),
		assignments: make(map[assignmentKey]time.Time),
		responses:   make(map[string]form.Response),
		answers:     make(map[string]form.Answer),
		grades:      make(map[gradeKey]form.Grade),
	}
}

// clone copies the maps. Stored values are never mutated in place, so they can be shared.
func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.forms {
		c.forms[k] = v
	}
	for k, v := range t.questions {
		c.questions[k] = v
	}
	for k, v := range t.assignments {
		c.assignments[k] = v
	}
	for k, v := range t.responses {
		c.responses[k] = v
	}
	for k, v := range t.answers {
		c.answers[k] = v
	}
	for k, v := range t.grades {
		c.grades[k] = v
	}
	return c
}

// Reset drops all the data.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables = newTables()
}

func (db *DB) read(tx *tables, fn func(t *tables) error) error {
	if tx != nil {
		return fn(tx)
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(db.tables)
}

func (db *DB) write(tx *tables, fn func(t *tables) error) error {
	if tx != nil {
		return fn(tx)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.tables)
}

// inTx serializes transactions: fn runs on a copy of the tables, committed when fn returns nil.
func (db *DB) inTx(tx *tables, fn func(tx *tables) error) error {
	if tx != nil {
		return fn(tx)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	tx = db.tables.clone()
	if err := fn(tx); err != nil {
		return err
	}
	db.tables = tx
	return nil
}

func copyStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	c := make([]string, len(ss))
	copy(c, ss)
	return c
}
