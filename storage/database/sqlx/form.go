package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classforms/core"
	"github.com/trezcool/classforms/core/form"
)

const formResponseKey = "form_response_form_id_user_id_key"

var (
	formColumns     = []string{"id", "teacher_id", "title", "created_at", "updated_at"}
	questionColumns = []string{"id", "form_id", "text", "type", "is_active", "position"}
	gradeColumns    = []string{"id", "teacher_id", "student_id", "form_id", "grade", "comment", "graded_at"}
)

type answerRow struct {
	ID         string         `db:"id"`
	ResponseID string         `db:"response_id"`
	QuestionID string         `db:"question_id"`
	Position   int            `db:"position"`
	Text       string         `db:"answer_text"`
	Values     pq.StringArray `db:"answer_values"`
	FileURL    null.String    `db:"file_url"`
}

type formRepository struct {
	db   core.DB
	exec core.DBExecutor // db, or the running transaction
}

var _ form.Repository = (*formRepository)(nil)

func NewFormRepository(db core.DB) form.Repository {
	return &formRepository{db: db, exec: db}
}

func (repo *formRepository) InTx(ctx context.Context, fn func(repo form.Repository) error) error {
	if _, ok := repo.exec.(*sqlx.Tx); ok {
		return fn(repo)
	}
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		return fn(&formRepository{db: repo.db, exec: tx})
	})
}

func (repo *formRepository) CreateForm(ctx context.Context, f form.Form) (form.Form, error) {
	_, err := execx(ctx, repo.exec, psql.Insert("form").
		Columns(formColumns...).
		Values(f.ID, f.TeacherID, f.Title, f.CreatedAt, f.UpdatedAt))
	if err != nil {
		return form.Form{}, errors.Wrap(err, "inserting form")
	}
	f.Questions, f.AssignedStudents = nil, nil
	return f, nil
}

func (repo *formRepository) UpdateForm(ctx context.Context, f form.Form) (form.Form, error) {
	var updated form.Form
	err := getx(ctx, repo.exec, &updated, psql.Update("form").
		Set("title", f.Title).
		Set("updated_at", f.UpdatedAt).
		Where(sq.Eq{"id": f.ID}).
		Suffix("RETURNING id, teacher_id, title, created_at, updated_at"))
	if err != nil {
		if isNotFound(err) {
			return form.Form{}, form.ErrFormNotFound
		}
		return form.Form{}, errors.Wrap(err, "updating form")
	}
	return updated, nil
}

func (repo *formRepository) GetForm(ctx context.Context, id string) (form.Form, error) {
	var f form.Form
	if err := getx(ctx, repo.exec, &f, psql.Select(formColumns...).From("form").Where(sq.Eq{"id": id})); err != nil {
		if isNotFound(err) {
			return form.Form{}, form.ErrFormNotFound
		}
		return form.Form{}, errors.Wrap(err, "selecting form")
	}
	return f, nil
}

func (repo *formRepository) QueryForms(ctx context.Context, filter form.FormFilter) ([]form.Form, error) {
	b := psql.Select(formColumns...).From("form").OrderBy("created_at DESC", "id")
	if filter.TeacherID != "" {
		b = b.Where(sq.Eq{"teacher_id": filter.TeacherID})
	}
	forms := make([]form.Form, 0)
	if err := selectx(ctx, repo.exec, &forms, b); err != nil {
		if pqErrorCode(err) == invalidTextRepr {
			return forms, nil
		}
		return nil, errors.Wrap(err, "selecting forms")
	}
	return forms, nil
}

// DeleteForm relies on ON DELETE CASCADE for questions, assignments, responses, answers and grades.
func (repo *formRepository) DeleteForm(ctx context.Context, id string) error {
	res, err := execx(ctx, repo.exec, psql.Delete("form").Where(sq.Eq{"id": id}))
	if err != nil {
		if isNotFound(err) {
			return form.ErrFormNotFound
		}
		return errors.Wrap(err, "deleting form")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return form.ErrFormNotFound
	}
	return nil
}

func (repo *formRepository) InsertQuestions(ctx context.Context, qs []form.Question) error {
	if len(qs) == 0 {
		return nil
	}
	qb := psql.Insert("question").Columns(questionColumns...)
	ob := psql.Insert("question_option").Columns("id", "question_id", "text", "position")
	var hasOptions bool
	for _, q := range qs {
		qb = qb.Values(q.ID, q.FormID, q.Text, string(q.Type), q.IsActive, q.Position)
		for _, opt := range q.Options {
			ob = ob.Values(opt.ID, q.ID, opt.Text, opt.Position)
			hasOptions = true
		}
	}
	if _, err := execx(ctx, repo.exec, qb); err != nil {
		if pqErrorCode(err) == foreignKeyViolation {
			return form.ErrFormNotFound
		}
		return errors.Wrap(err, "inserting questions")
	}
	if hasOptions {
		if _, err := execx(ctx, repo.exec, ob); err != nil {
			return errors.Wrap(err, "inserting options")
		}
	}
	return nil
}

func (repo *formRepository) DeleteQuestions(ctx context.Context, formID string) error {
	_, err := execx(ctx, repo.exec, psql.Delete("question").Where(sq.Eq{"form_id": formID}))
	return errors.Wrap(err, "deleting questions")
}

func (repo *formRepository) GetQuestions(ctx context.Context, formID string, activeOnly bool) ([]form.Question, error) {
	b := psql.Select(questionColumns...).From("question").Where(sq.Eq{"form_id": formID}).OrderBy("position")
	if activeOnly {
		b = b.Where(sq.Eq{"is_active": true})
	}
	qs := make([]form.Question, 0)
	if err := selectx(ctx, repo.exec, &qs, b); err != nil {
		if pqErrorCode(err) == invalidTextRepr {
			return qs, nil
		}
		return nil, errors.Wrap(err, "selecting questions")
	}
	if len(qs) == 0 {
		return qs, nil
	}

	ids := make([]string, 0, len(qs))
	byID := make(map[string]int, len(qs))
	for i, q := range qs {
		ids = append(ids, q.ID)
		byID[q.ID] = i
	}
	var opts []form.Option
	err := selectx(ctx, repo.exec, &opts, psql.Select("id", "question_id", "text", "position").
		From("question_option").
		Where(sq.Eq{"question_id": ids}).
		OrderBy("question_id", "position"))
	if err != nil {
		return nil, errors.Wrap(err, "selecting options")
	}
	for _, opt := range opts {
		i := byID[opt.QuestionID]
		qs[i].Options = append(qs[i].Options, opt)
	}
	return qs, nil
}

func (repo *formRepository) AssignStudents(ctx context.Context, formID string, studentIDs []string, at time.Time) error {
	if len(studentIDs) == 0 {
		return nil
	}
	b := psql.Insert("form_assignment").Columns("form_id", "user_id", "assigned_at").Suffix("ON CONFLICT DO NOTHING")
	for _, id := range studentIDs {
		b = b.Values(formID, id, at)
	}
	if _, err := execx(ctx, repo.exec, b); err != nil {
		if pqErrorCode(err) == foreignKeyViolation {
			return form.ErrFormNotFound
		}
		return errors.Wrap(err, "inserting assignments")
	}
	return nil
}

func (repo *formRepository) AssignmentExists(ctx context.Context, formID, studentID string) (bool, error) {
	ok, err := existsx(ctx, repo.exec, psql.Select("1").From("form_assignment").
		Where(sq.Eq{"form_id": formID, "user_id": studentID}))
	return ok, errors.Wrap(err, "checking assignment")
}

func (repo *formRepository) QueryAssignedStudents(ctx context.Context, formID string) ([]string, error) {
	ids := make([]string, 0)
	err := selectx(ctx, repo.exec, &ids, psql.Select("user_id").From("form_assignment").
		Where(sq.Eq{"form_id": formID}).
		OrderBy("user_id"))
	if err != nil {
		return nil, errors.Wrap(err, "selecting assignments")
	}
	return ids, nil
}

func (repo *formRepository) QueryOutstandingForms(ctx context.Context, studentID string) ([]form.Form, error) {
	forms := make([]form.Form, 0)
	err := selectx(ctx, repo.exec, &forms, psql.
		Select("f.id", "f.teacher_id", "f.title", "f.created_at", "f.updated_at").
		From("form f").
		Join("form_assignment a ON a.form_id = f.id").
		Where(sq.Eq{"a.user_id": studentID}).
		Where("NOT EXISTS (SELECT 1 FROM form_response r WHERE r.form_id = f.id AND r.user_id = a.user_id)").
		OrderBy("f.created_at DESC", "f.id"))
	if err != nil {
		return nil, errors.Wrap(err, "selecting outstanding forms")
	}
	return forms, nil
}

func (repo *formRepository) ResponseExists(ctx context.Context, formID, studentID string) (bool, error) {
	ok, err := existsx(ctx, repo.exec, psql.Select("1").From("form_response").
		Where(sq.Eq{"form_id": formID, "user_id": studentID}))
	return ok, errors.Wrap(err, "checking response")
}

func (repo *formRepository) CreateResponse(ctx context.Context, resp form.Response) (form.Response, error) {
	_, err := execx(ctx, repo.exec, psql.Insert("form_response").
		Columns("id", "form_id", "user_id", "submitted_at").
		Values(resp.ID, resp.FormID, resp.UserID, resp.SubmittedAt))
	if err != nil {
		if isUniqueViolation(err, formResponseKey) {
			return form.Response{}, form.ErrAlreadySubmitted
		}
		return form.Response{}, errors.Wrap(err, "inserting response")
	}
	resp.Answers = nil
	return resp, nil
}

func (repo *formRepository) GetResponse(ctx context.Context, formID, studentID string) (form.Response, error) {
	var resp form.Response
	err := getx(ctx, repo.exec, &resp, psql.Select("id", "form_id", "user_id", "submitted_at").
		From("form_response").
		Where(sq.Eq{"form_id": formID, "user_id": studentID}))
	if err != nil {
		if isNotFound(err) {
			return form.Response{}, form.ErrResponseNotFound
		}
		return form.Response{}, errors.Wrap(err, "selecting response")
	}
	return resp, nil
}

func (repo *formRepository) QueryResponses(ctx context.Context, formID, teacherID string) ([]form.ResponseSummary, error) {
	summaries := make([]form.ResponseSummary, 0)
	err := selectx(ctx, repo.exec, &summaries, psql.
		Select(
			"r.id AS response_id",
			"r.user_id AS student_id",
			"u.name AS student_name",
			"u.email AS student_email",
			"r.submitted_at",
			"g.grade",
			"g.comment",
		).
		From("form_response r").
		Join(`"user" u ON u.id = r.user_id`).
		LeftJoin("grade g ON g.form_id = r.form_id AND g.student_id = r.user_id AND g.teacher_id = ?", teacherID).
		Where(sq.Eq{"r.form_id": formID}).
		OrderBy("r.submitted_at", "r.id"))
	if err != nil {
		return nil, errors.Wrap(err, "selecting responses")
	}
	return summaries, nil
}

func (repo *formRepository) InsertAnswers(ctx context.Context, answers []form.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	b := psql.Insert("answer").Columns("id", "response_id", "question_id", "position", "answer_text", "answer_values", "file_url")
	for _, ans := range answers {
		values := ans.Values
		if values == nil {
			values = []string{}
		}
		b = b.Values(ans.ID, ans.ResponseID, ans.QuestionID, ans.Position, ans.Text, pq.Array(values), ans.FileURL)
	}
	_, err := execx(ctx, repo.exec, b)
	return errors.Wrap(err, "inserting answers")
}

func (repo *formRepository) GetAnswers(ctx context.Context, responseID string) ([]form.Answer, error) {
	var rows []answerRow
	err := selectx(ctx, repo.exec, &rows, psql.
		Select("id", "response_id", "question_id", "position", "answer_text", "answer_values", "file_url").
		From("answer").
		Where(sq.Eq{"response_id": responseID}).
		OrderBy("position"))
	if err != nil {
		return nil, errors.Wrap(err, "selecting answers")
	}
	answers := make([]form.Answer, 0, len(rows))
	for _, r := range rows {
		values := []string(r.Values)
		if values == nil {
			values = []string{}
		}
		answers = append(answers, form.Answer{
			ID:         r.ID,
			ResponseID: r.ResponseID,
			QuestionID: r.QuestionID,
			Position:   r.Position,
			Text:       r.Text,
			Values:     values,
			FileURL:    r.FileURL,
		})
	}
	return answers, nil
}

// UpsertGrade relies on the (teacher_id, student_id, form_id) unique constraint.
// The ID of an existing grade is kept.
func (repo *formRepository) UpsertGrade(ctx context.Context, g form.Grade) (form.Grade, error) {
	var stored form.Grade
	err := getx(ctx, repo.exec, &stored, psql.Insert("grade").
		Columns(gradeColumns...).
		Values(g.ID, g.TeacherID, g.StudentID, g.FormID, g.Grade, g.Comment, g.GradedAt).
		Suffix(`ON CONFLICT (teacher_id, student_id, form_id) DO UPDATE
			SET grade = EXCLUDED.grade, comment = EXCLUDED.comment, graded_at = EXCLUDED.graded_at
			RETURNING id, teacher_id, student_id, form_id, grade, comment, graded_at`))
	if err != nil {
		return form.Grade{}, errors.Wrap(err, "upserting grade")
	}
	return stored, nil
}

func (repo *formRepository) GetGrade(ctx context.Context, teacherID, studentID, formID string) (form.Grade, error) {
	var g form.Grade
	err := getx(ctx, repo.exec, &g, psql.Select(gradeColumns...).From("grade").
		Where(sq.Eq{"teacher_id": teacherID, "student_id": studentID, "form_id": formID}))
	if err != nil {
		if isNotFound(err) {
			return form.Grade{}, form.ErrGradeNotFound
		}
		return form.Grade{}, errors.Wrap(err, "selecting grade")
	}
	return g, nil
}

func (repo *formRepository) QueryStudentGrades(ctx context.Context, studentID string) ([]form.StudentGrade, error) {
	grades := make([]form.StudentGrade, 0)
	err := selectx(ctx, repo.exec, &grades, psql.
		Select("g.form_id", "f.title AS form_title", "g.grade", "g.comment", "g.graded_at").
		From("grade g").
		Join("form f ON f.id = g.form_id").
		Where(sq.Eq{"g.student_id": studentID}).
		OrderBy("g.graded_at DESC", "g.form_id"))
	if err != nil {
		return nil, errors.Wrap(err, "selecting grades")
	}
	return grades, nil
}
