package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/classforms/core/form"
)

type formRepository struct {
	db *DB
	tx *tables // set within InTx
}

var _ form.Repository = (*formRepository)(nil)

func NewFormRepository(db *DB) form.Repository {
	return &formRepository{db: db}
}

func (repo *formRepository) read(fn func(t *tables) error) error  { return repo.db.read(repo.tx, fn) }
func (repo *formRepository) write(fn func(t *tables) error) error { return repo.db.write(repo.tx, fn) }

func (repo *formRepository) InTx(_ context.Context, fn func(repo form.Repository) error) error {
	return repo.db.inTx(repo.tx, func(tx *tables) error {
		return fn(&formRepository{db: repo.db, tx: tx})
	})
}

func copyQuestion(q form.Question) form.Question {
	if q.Options != nil {
		opts := make([]form.Option, len(q.Options))
		copy(opts, q.Options)
		q.Options = opts
	}
	return q
}

func copyAnswer(ans form.Answer) form.Answer {
	ans.Values = copyStrings(ans.Values)
	return ans
}

func sortForms(forms []form.Form) {
	sort.Slice(forms, func(i, j int) bool {
		if !forms[i].CreatedAt.Equal(forms[j].CreatedAt) {
			return forms[i].CreatedAt.After(forms[j].CreatedAt)
		}
		return forms[i].ID < forms[j].ID
	})
}

func (repo *formRepository) CreateForm(_ context.Context, f form.Form) (form.Form, error) {
	f.Questions, f.AssignedStudents = nil, nil
	_ = repo.write(func(t *tables) error {
		t.forms[f.ID] = f
		return nil
	})
	return f, nil
}

func (repo *formRepository) UpdateForm(_ context.Context, f form.Form) (form.Form, error) {
	err := repo.write(func(t *tables) error {
		orig, ok := t.forms[f.ID]
		if !ok {
			return form.ErrFormNotFound
		}
		orig.Title = f.Title
		orig.UpdatedAt = f.UpdatedAt
		t.forms[f.ID] = orig
		f = orig
		return nil
	})
	if err != nil {
		return form.Form{}, err
	}
	return f, nil
}

func (repo *formRepository) GetForm(_ context.Context, id string) (form.Form, error) {
	var (
		f  form.Form
		ok bool
	)
	_ = repo.read(func(t *tables) error {
		f, ok = t.forms[id]
		return nil
	})
	if !ok {
		return form.Form{}, form.ErrFormNotFound
	}
	return f, nil
}

func (repo *formRepository) QueryForms(_ context.Context, filter form.FormFilter) ([]form.Form, error) {
	forms := make([]form.Form, 0)
	_ = repo.read(func(t *tables) error {
		for _, f := range t.forms {
			if filter.TeacherID == "" || f.TeacherID == filter.TeacherID {
				forms = append(forms, f)
			}
		}
		return nil
	})
	sortForms(forms)
	return forms, nil
}

// DeleteForm cascades to questions, assignments, responses, answers and grades.
func (repo *formRepository) DeleteForm(_ context.Context, id string) error {
	return repo.write(func(t *tables) error {
		if _, ok := t.forms[id]; !ok {
			return form.ErrFormNotFound
		}
		delete(t.forms, id)
		for qid, q := range t.questions {
			if q.FormID == id {
				delete(t.questions, qid)
			}
		}
		for key := range t.assignments {
			if key.formID == id {
				delete(t.assignments, key)
			}
		}
		for rid, resp := range t.responses {
			if resp.FormID != id {
				continue
			}
			delete(t.responses, rid)
			for aid, ans := range t.answers {
				if ans.ResponseID == rid {
					delete(t.answers, aid)
				}
			}
		}
		for key := range t.grades {
			if key.formID == id {
				delete(t.grades, key)
			}
		}
		return nil
	})
}

func (repo *formRepository) InsertQuestions(_ context.Context, qs []form.Question) error {
	return repo.write(func(t *tables) error {
		for _, q := range qs {
			if _, ok := t.forms[q.FormID]; !ok {
				return form.ErrFormNotFound
			}
			t.questions[q.ID] = copyQuestion(q)
		}
		return nil
	})
}

func (repo *formRepository) DeleteQuestions(_ context.Context, formID string) error {
	return repo.write(func(t *tables) error {
		for qid, q := range t.questions {
			if q.FormID == formID {
				delete(t.questions, qid)
			}
		}
		return nil
	})
}

func (repo *formRepository) GetQuestions(_ context.Context, formID string, activeOnly bool) ([]form.Question, error) {
	qs := make([]form.Question, 0)
	_ = repo.read(func(t *tables) error {
		for _, q := range t.questions {
			if q.FormID == formID && (q.IsActive || !activeOnly) {
				qs = append(qs, copyQuestion(q))
			}
		}
		return nil
	})
	sort.Slice(qs, func(i, j int) bool { return qs[i].Position < qs[j].Position })
	return qs, nil
}

func (repo *formRepository) AssignStudents(_ context.Context, formID string, studentIDs []string, at time.Time) error {
	return repo.write(func(t *tables) error {
		if _, ok := t.forms[formID]; !ok {
			return form.ErrFormNotFound
		}
		for _, id := range studentIDs {
			key := assignmentKey{formID: formID, studentID: id}
			if _, ok := t.assignments[key]; !ok {
				t.assignments[key] = at
			}
		}
		return nil
	})
}

func (repo *formRepository) AssignmentExists(_ context.Context, formID, studentID string) (bool, error) {
	var ok bool
	_ = repo.read(func(t *tables) error {
		_, ok = t.assignments[assignmentKey{formID: formID, studentID: studentID}]
		return nil
	})
	return ok, nil
}

func (repo *formRepository) QueryAssignedStudents(_ context.Context, formID string) ([]string, error) {
	ids := make([]string, 0)
	_ = repo.read(func(t *tables) error {
		for key := range t.assignments {
			if key.formID == formID {
				ids = append(ids, key.studentID)
			}
		}
		return nil
	})
	sort.Strings(ids)
	return ids, nil
}

func (repo *formRepository) QueryOutstandingForms(_ context.Context, studentID string) ([]form.Form, error) {
	forms := make([]form.Form, 0)
	_ = repo.read(func(t *tables) error {
		submitted := make(map[string]bool)
		for _, resp := range t.responses {
			if resp.UserID == studentID {
				submitted[resp.FormID] = true
			}
		}
		for key := range t.assignments {
			if key.studentID != studentID || submitted[key.formID] {
				continue
			}
			if f, ok := t.forms[key.formID]; ok {
				forms = append(forms, f)
			}
		}
		return nil
	})
	sortForms(forms)
	return forms, nil
}

func findResponse(t *tables, formID, studentID string) (form.Response, bool) {
	for _, resp := range t.responses {
		if resp.FormID == formID && resp.UserID == studentID {
			return resp, true
		}
	}
	return form.Response{}, false
}

func (repo *formRepository) ResponseExists(_ context.Context, formID, studentID string) (bool, error) {
	var ok bool
	_ = repo.read(func(t *tables) error {
		_, ok = findResponse(t, formID, studentID)
		return nil
	})
	return ok, nil
}

func (repo *formRepository) CreateResponse(_ context.Context, resp form.Response) (form.Response, error) {
	resp.Answers = nil
	err := repo.write(func(t *tables) error {
		if _, ok := t.forms[resp.FormID]; !ok {
			return form.ErrFormNotFound
		}
		if _, ok := findResponse(t, resp.FormID, resp.UserID); ok {
			return form.ErrAlreadySubmitted
		}
		t.responses[resp.ID] = resp
		return nil
	})
	if err != nil {
		return form.Response{}, err
	}
	return resp, nil
}

func (repo *formRepository) GetResponse(_ context.Context, formID, studentID string) (form.Response, error) {
	var (
		resp form.Response
		ok   bool
	)
	_ = repo.read(func(t *tables) error {
		resp, ok = findResponse(t, formID, studentID)
		return nil
	})
	if !ok {
		return form.Response{}, form.ErrResponseNotFound
	}
	return resp, nil
}

func (repo *formRepository) QueryResponses(_ context.Context, formID, teacherID string) ([]form.ResponseSummary, error) {
	summaries := make([]form.ResponseSummary, 0)
	_ = repo.read(func(t *tables) error {
		for _, resp := range t.responses {
			if resp.FormID != formID {
				continue
			}
			s := form.ResponseSummary{
				ResponseID:  resp.ID,
				StudentID:   resp.UserID,
				SubmittedAt: resp.SubmittedAt,
			}
			if usr, ok := t.users[resp.UserID]; ok {
				s.StudentName = usr.Name
				s.StudentEmail = usr.Email
			}
			if g, ok := t.grades[gradeKey{teacherID: teacherID, studentID: resp.UserID, formID: formID}]; ok {
				s.Grade.SetValid(g.Grade)
				s.Comment.SetValid(g.Comment)
			}
			summaries = append(summaries, s)
		}
		return nil
	})
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].SubmittedAt.Equal(summaries[j].SubmittedAt) {
			return summaries[i].SubmittedAt.Before(summaries[j].SubmittedAt)
		}
		return summaries[i].ResponseID < summaries[j].ResponseID
	})
	return summaries, nil
}

func (repo *formRepository) InsertAnswers(_ context.Context, answers []form.Answer) error {
	return repo.write(func(t *tables) error {
		for _, ans := range answers {
			if _, ok := t.responses[ans.ResponseID]; !ok {
				return form.ErrResponseNotFound
			}
			t.answers[ans.ID] = copyAnswer(ans)
		}
		return nil
	})
}

func (repo *formRepository) GetAnswers(_ context.Context, responseID string) ([]form.Answer, error) {
	answers := make([]form.Answer, 0)
	_ = repo.read(func(t *tables) error {
		for _, ans := range t.answers {
			if ans.ResponseID == responseID {
				answers = append(answers, copyAnswer(ans))
			}
		}
		return nil
	})
	sort.Slice(answers, func(i, j int) bool { return answers[i].Position < answers[j].Position })
	return answers, nil
}

// UpsertGrade keeps the ID of an existing grade.
func (repo *formRepository) UpsertGrade(_ context.Context, g form.Grade) (form.Grade, error) {
	_ = repo.write(func(t *tables) error {
		key := gradeKey{teacherID: g.TeacherID, studentID: g.StudentID, formID: g.FormID}
		if existing, ok := t.grades[key]; ok {
			g.ID = existing.ID
		}
		t.grades[key] = g
		return nil
	})
	return g, nil
}

func (repo *formRepository) GetGrade(_ context.Context, teacherID, studentID, formID string) (form.Grade, error) {
	var (
		g  form.Grade
		ok bool
	)
	_ = repo.read(func(t *tables) error {
		g, ok = t.grades[gradeKey{teacherID: teacherID, studentID: studentID, formID: formID}]
		return nil
	})
	if !ok {
		return form.Grade{}, form.ErrGradeNotFound
	}
	return g, nil
}

func (repo *formRepository) QueryStudentGrades(_ context.Context, studentID string) ([]form.StudentGrade, error) {
	grades := make([]form.StudentGrade, 0)
	_ = repo.read(func(t *tables) error {
		for key, g := range t.grades {
			if key.studentID != studentID {
				continue
			}
			grades = append(grades, form.StudentGrade{
				FormID:    g.FormID,
				FormTitle: t.forms[g.FormID].Title,
				Grade:     g.Grade,
				Comment:   g.Comment,
				GradedAt:  g.GradedAt,
			})
		}
		return nil
	})
	sort.Slice(grades, func(i, j int) bool {
		if !grades[i].GradedAt.Equal(grades[j].GradedAt) {
			return grades[i].GradedAt.After(grades[j].GradedAt)
		}
		return grades[i].FormID < grades[j].FormID
	})
	return grades, nil
}
