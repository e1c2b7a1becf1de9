package form

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classforms/core"
	"github.com/trezcool/classforms/core/user"
)

var (
	// errors
	ErrFormNotFound     = core.NewNotFoundError("form not found")
	ErrResponseNotFound = core.NewNotFoundError("response not found")
	ErrGradeNotFound    = core.NewNotFoundError("grade not found")
	ErrTeacherOnly      = core.NewAuthorizationError("only teachers can manage forms")
	ErrStudentOnly      = core.NewAuthorizationError("only students can answer forms")
	ErrNotAssigned      = core.NewAuthorizationError("this form is not assigned to you")
	ErrAlreadySubmitted = core.NewConflictError(errors.New("you have already submitted this form"))

	nowFunc = time.Now // mockable
	newID   = func() string { return uuid.New().String() }
)

type (
	// Repository is the storage of forms, assignments, responses and grades.
	// Implementations must map unique violations on (form, student) responses to ErrAlreadySubmitted.
	Repository interface {
		// InTx runs fn in a transaction: fn's changes are committed only if it returns nil.
		InTx(ctx context.Context, fn func(repo Repository) error) error

		CreateForm(ctx context.Context, f Form) (Form, error)
		UpdateForm(ctx context.Context, f Form) (Form, error)
		GetForm(ctx context.Context, id string) (Form, error)
		QueryForms(ctx context.Context, filter FormFilter) ([]Form, error)
		DeleteForm(ctx context.Context, id string) error

		InsertQuestions(ctx context.Context, qs []Question) error
		DeleteQuestions(ctx context.Context, formID string) error
		// GetQuestions returns the questions of a form, with their options, ordered by position.
		GetQuestions(ctx context.Context, formID string, activeOnly bool) ([]Question, error)

		// AssignStudents ignores existing assignments.
		AssignStudents(ctx context.Context, formID string, studentIDs []string, at time.Time) error
		AssignmentExists(ctx context.Context, formID, studentID string) (bool, error)
		QueryAssignedStudents(ctx context.Context, formID string) ([]string, error)
		// QueryOutstandingForms returns the forms assigned to the student and not yet submitted.
		QueryOutstandingForms(ctx context.Context, studentID string) ([]Form, error)

		ResponseExists(ctx context.Context, formID, studentID string) (bool, error)
		CreateResponse(ctx context.Context, resp Response) (Response, error)
		GetResponse(ctx context.Context, formID, studentID string) (Response, error)
		// QueryResponses returns the form's responses with the grade given by teacherID, if any.
		QueryResponses(ctx context.Context, formID, teacherID string) ([]ResponseSummary, error)
		InsertAnswers(ctx context.Context, answers []Answer) error
		GetAnswers(ctx context.Context, responseID string) ([]Answer, error)

		// UpsertGrade atomically inserts or replaces the grade of (teacher, student, form).
		UpsertGrade(ctx context.Context, g Grade) (Grade, error)
		GetGrade(ctx context.Context, teacherID, studentID, formID string) (Grade, error)
		QueryStudentGrades(ctx context.Context, studentID string) ([]StudentGrade, error)
	}

	// UserService is the subset of user.Service used by forms.
	UserService interface {
		GetByID(ctx context.Context, id string) (user.User, error)
		QueryStudents(ctx context.Context, ids ...string) ([]user.User, error)
	}

	Service struct {
		repo     Repository
		users    UserService
		files    core.FileStorage
		notifier Notifier
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	users UserService,
	files core.FileStorage,
	notifier Notifier,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(files, "files"),
		vala.IsNotNil(notifier, "notifier"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:     repo,
		users:    users,
		files:    files,
		notifier: notifier,
		validate: validate,
		logger:   logger,
	}
}

func requireTeacher(p user.Principal) error {
	if !p.IsTeacher() {
		return ErrTeacherOnly
	}
	return nil
}

func requireStudent(p user.Principal) error {
	if !p.IsStudent() {
		return ErrStudentOnly
	}
	return nil
}

func getForm(ctx context.Context, repo Repository, formID string) (Form, error) {
	f, err := repo.GetForm(ctx, formID)
	if err != nil {
		if errors.Cause(err) == ErrFormNotFound {
			return Form{}, ErrFormNotFound
		}
		return Form{}, errors.Wrap(err, "getting form")
	}
	return f, nil
}

// getOwnedForm hides forms of other teachers behind ErrFormNotFound.
func getOwnedForm(ctx context.Context, repo Repository, p user.Principal, formID string) (Form, error) {
	if err := requireTeacher(p); err != nil {
		return Form{}, err
	}
	f, err := getForm(ctx, repo, formID)
	if err != nil {
		return Form{}, err
	}
	if f.TeacherID != p.ID {
		return Form{}, ErrFormNotFound
	}
	return f, nil
}

// checkStudents ensures every id is an active student.
func (svc *Service) checkStudents(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "assigned_students", Error: fmt.Sprintf("unknown student: %s", id)})
		}
	}
	students, err := svc.users.QueryStudents(ctx, ids...)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	found := make(map[string]struct{}, len(students))
	for _, s := range students {
		found[s.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return core.NewValidationError(nil, core.FieldError{Field: "assigned_students", Error: fmt.Sprintf("unknown student: %s", id)})
		}
	}
	return nil
}

func buildQuestions(formID string, nqs []NewQuestion) []Question {
	qs := make([]Question, 0, len(nqs))
	for i, nq := range nqs {
		q := Question{
			ID:       newID(),
			FormID:   formID,
			Text:     nq.Text,
			Type:     nq.Type,
			IsActive: nq.IsActive == nil || *nq.IsActive,
			Position: i + 1,
		}
		if nq.Type.IsChoice() {
			q.Options = make([]Option, 0, len(nq.Options))
			for j, text := range nq.Options {
				q.Options = append(q.Options, Option{ID: newID(), QuestionID: q.ID, Text: text, Position: j + 1})
			}
		}
		qs = append(qs, q)
	}
	return qs
}

// CreateForm creates a form owned by the calling teacher, with its questions and assignments.
func (svc *Service) CreateForm(ctx context.Context, p user.Principal, nf NewForm) (Form, error) {
	if err := requireTeacher(p); err != nil {
		return Form{}, err
	}
	if err := nf.Validate(svc.validate); err != nil {
		return Form{}, err
	}
	if err := svc.checkStudents(ctx, nf.AssignedStudents); err != nil {
		return Form{}, err
	}

	now := nowFunc().UTC()
	f := Form{
		ID:        newID(),
		TeacherID: p.ID,
		Title:     nf.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	qs := buildQuestions(f.ID, nf.Questions)

	err := svc.repo.InTx(ctx, func(repo Repository) error {
		var err error
		if f, err = repo.CreateForm(ctx, f); err != nil {
			return errors.Wrap(err, "creating form")
		}
		if err = repo.InsertQuestions(ctx, qs); err != nil {
			return errors.Wrap(err, "inserting questions")
		}
		if err = repo.AssignStudents(ctx, f.ID, nf.AssignedStudents, now); err != nil {
			return errors.Wrap(err, "assigning students")
		}
		return nil
	})
	if err != nil {
		return Form{}, err
	}

	f.Questions = qs
	f.AssignedStudents = nf.AssignedStudents
	return f, nil
}

// ListOwnForms returns the calling teacher's forms, newest first.
func (svc *Service) ListOwnForms(ctx context.Context, p user.Principal) ([]Form, error) {
	if err := requireTeacher(p); err != nil {
		return nil, err
	}
	return svc.repo.QueryForms(ctx, FormFilter{TeacherID: p.ID})
}

// GetOwnForm returns a form of the calling teacher with all its questions and assigned students.
func (svc *Service) GetOwnForm(ctx context.Context, p user.Principal, formID string) (Form, error) {
	f, err := getOwnedForm(ctx, svc.repo, p, formID)
	if err != nil {
		return Form{}, err
	}
	if f.Questions, err = svc.repo.GetQuestions(ctx, f.ID, false); err != nil {
		return Form{}, errors.Wrap(err, "getting questions")
	}
	if f.AssignedStudents, err = svc.repo.QueryAssignedStudents(ctx, f.ID); err != nil {
		return Form{}, errors.Wrap(err, "getting assigned students")
	}
	return f, nil
}

// UpdateForm renames a form, replaces its questions when provided, and assigns additional students.
func (svc *Service) UpdateForm(ctx context.Context, p user.Principal, formID string, uf UpdateForm) (Form, error) {
	if err := requireTeacher(p); err != nil {
		return Form{}, err
	}
	if err := uf.Validate(svc.validate); err != nil {
		return Form{}, err
	}
	if err := svc.checkStudents(ctx, uf.AssignedStudents); err != nil {
		return Form{}, err
	}

	var f Form
	err := svc.repo.InTx(ctx, func(repo Repository) error {
		var err error
		if f, err = getOwnedForm(ctx, repo, p, formID); err != nil {
			return err
		}
		now := nowFunc().UTC()
		f.Title = uf.Title
		f.UpdatedAt = now
		if f, err = repo.UpdateForm(ctx, f); err != nil {
			return errors.Wrap(err, "updating form")
		}
		if uf.Questions != nil {
			if err = replaceQuestions(ctx, repo, f.ID, uf.Questions); err != nil {
				return err
			}
		}
		if err = repo.AssignStudents(ctx, f.ID, uf.AssignedStudents, now); err != nil {
			return errors.Wrap(err, "assigning students")
		}
		return nil
	})
	if err != nil {
		return Form{}, err
	}
	return svc.GetOwnForm(ctx, p, f.ID)
}

// ReplaceQuestions deletes all the questions of a form and inserts the new ones.
// Stored answers to the deleted questions are kept but no longer shown.
func (svc *Service) ReplaceQuestions(ctx context.Context, p user.Principal, formID string, nqs []NewQuestion) (Form, error) {
	if err := requireTeacher(p); err != nil {
		return Form{}, err
	}
	in := questionsInput{Questions: cleanQuestions(nqs)}
	if in.Questions == nil {
		in.Questions = []NewQuestion{}
	}
	if err := svc.validate.Struct(in); err != nil {
		return Form{}, err
	}

	err := svc.repo.InTx(ctx, func(repo Repository) error {
		f, err := getOwnedForm(ctx, repo, p, formID)
		if err != nil {
			return err
		}
		if err = replaceQuestions(ctx, repo, f.ID, in.Questions); err != nil {
			return err
		}
		f.UpdatedAt = nowFunc().UTC()
		_, err = repo.UpdateForm(ctx, f)
		return errors.Wrap(err, "updating form")
	})
	if err != nil {
		return Form{}, err
	}
	return svc.GetOwnForm(ctx, p, formID)
}

func replaceQuestions(ctx context.Context, repo Repository, formID string, nqs []NewQuestion) error {
	if err := repo.DeleteQuestions(ctx, formID); err != nil {
		return errors.Wrap(err, "deleting questions")
	}
	if err := repo.InsertQuestions(ctx, buildQuestions(formID, nqs)); err != nil {
		return errors.Wrap(err, "inserting questions")
	}
	return nil
}

// DeleteForm deletes a form of the calling teacher along with everything attached to it.
func (svc *Service) DeleteForm(ctx context.Context, p user.Principal, formID string) error {
	return svc.repo.InTx(ctx, func(repo Repository) error {
		f, err := getOwnedForm(ctx, repo, p, formID)
		if err != nil {
			return err
		}
		return errors.Wrap(repo.DeleteForm(ctx, f.ID), "deleting form")
	})
}

// AssignStudents grants students access to a form. Existing assignments are kept.
func (svc *Service) AssignStudents(ctx context.Context, p user.Principal, formID string, studentIDs []string) error {
	f, err := getOwnedForm(ctx, svc.repo, p, formID)
	if err != nil {
		return err
	}
	studentIDs = uniqueStrings(core.CleanStrings(studentIDs))
	if err = svc.checkStudents(ctx, studentIDs); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.AssignStudents(ctx, f.ID, studentIDs, nowFunc().UTC()), "assigning students")
}

// ListAssignedStudents returns the students a form of the calling teacher is assigned to.
func (svc *Service) ListAssignedStudents(ctx context.Context, p user.Principal, formID string) ([]user.User, error) {
	f, err := getOwnedForm(ctx, svc.repo, p, formID)
	if err != nil {
		return nil, err
	}
	ids, err := svc.repo.QueryAssignedStudents(ctx, f.ID)
	if err != nil {
		return nil, errors.Wrap(err, "getting assigned students")
	}
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	return svc.users.QueryStudents(ctx, ids...)
}

// IsEligible reports whether p may view the form: its owner, or a student it is assigned to.
func (svc *Service) IsEligible(ctx context.Context, p user.Principal, formID string) (bool, error) {
	f, err := getForm(ctx, svc.repo, formID)
	if err != nil {
		if err == ErrFormNotFound {
			return false, nil
		}
		return false, err
	}
	return isEligible(ctx, svc.repo, p, f)
}

func isEligible(ctx context.Context, repo Repository, p user.Principal, f Form) (bool, error) {
	if p.IsTeacher() && f.TeacherID == p.ID {
		return true, nil
	}
	if p.IsStudent() {
		ok, err := repo.AssignmentExists(ctx, f.ID, p.ID)
		return ok, errors.Wrap(err, "checking assignment")
	}
	return false, nil
}

// ViewForm returns a form with its active questions, for its owner or an assigned student.
func (svc *Service) ViewForm(ctx context.Context, p user.Principal, formID string) (Form, error) {
	f, err := getForm(ctx, svc.repo, formID)
	if err != nil {
		return Form{}, err
	}
	ok, err := isEligible(ctx, svc.repo, p, f)
	if err != nil {
		return Form{}, err
	}
	if !ok {
		if p.IsTeacher() && !p.IsStudent() {
			return Form{}, ErrFormNotFound
		}
		return Form{}, ErrNotAssigned
	}
	if f.Questions, err = svc.repo.GetQuestions(ctx, f.ID, true); err != nil {
		return Form{}, errors.Wrap(err, "getting questions")
	}
	return f, nil
}

// ListOutstanding returns the forms assigned to the calling student and not yet submitted,
// with their active questions.
func (svc *Service) ListOutstanding(ctx context.Context, p user.Principal) ([]Form, error) {
	if err := requireStudent(p); err != nil {
		return nil, err
	}
	forms, err := svc.repo.QueryOutstandingForms(ctx, p.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying outstanding forms")
	}
	for i := range forms {
		if forms[i].Questions, err = svc.repo.GetQuestions(ctx, forms[i].ID, true); err != nil {
			return nil, errors.Wrap(err, "getting questions")
		}
	}
	return forms, nil
}

// SubmitAnswers records the calling student's single response to a form.
// Answers are matched to the active questions by position: sub.Answers[i] answers the (i+1)th question.
// Missing answers are stored empty; extra answers are ignored.
func (svc *Service) SubmitAnswers(ctx context.Context, p user.Principal, formID string, sub Submission) (Response, error) {
	if err := requireStudent(p); err != nil {
		return Response{}, err
	}

	var resp Response
	err := svc.repo.InTx(ctx, func(repo Repository) error {
		f, err := getForm(ctx, repo, formID)
		if err != nil {
			return err
		}
		assigned, err := repo.AssignmentExists(ctx, f.ID, p.ID)
		if err != nil {
			return errors.Wrap(err, "checking assignment")
		}
		if !assigned {
			return ErrNotAssigned
		}
		submitted, err := repo.ResponseExists(ctx, f.ID, p.ID)
		if err != nil {
			return errors.Wrap(err, "checking response")
		}
		if submitted {
			return ErrAlreadySubmitted
		}

		qs, err := repo.GetQuestions(ctx, f.ID, true)
		if err != nil {
			return errors.Wrap(err, "getting questions")
		}
		resp = Response{ID: newID(), FormID: f.ID, UserID: p.ID, SubmittedAt: nowFunc().UTC()}
		answers, err := svc.buildAnswers(ctx, resp, qs, sub)
		if err != nil {
			return err
		}

		if resp, err = repo.CreateResponse(ctx, resp); err != nil {
			if errors.Cause(err) == ErrAlreadySubmitted {
				return ErrAlreadySubmitted
			}
			return errors.Wrap(err, "creating response")
		}
		if err = repo.InsertAnswers(ctx, answers); err != nil {
			return errors.Wrap(err, "inserting answers")
		}
		resp.Answers = answers
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (svc *Service) buildAnswers(ctx context.Context, resp Response, qs []Question, sub Submission) ([]Answer, error) {
	answers := make([]Answer, 0, len(qs))
	for i, q := range qs {
		in := sub.Answers[i]
		ans := Answer{
			ID:         newID(),
			ResponseID: resp.ID,
			QuestionID: q.ID,
			Position:   q.Position,
			Values:     core.CleanStrings(in.Values),
		}
		if ans.Values == nil {
			ans.Values = []string{}
		}
		field := fmt.Sprintf("answer_%d", i)

		switch q.Type {
		case Checkbox, Radio, Dropdown:
			ans.Values = uniqueStrings(ans.Values)
			if q.Type != Checkbox && len(ans.Values) > 1 {
				return nil, core.NewValidationError(nil, core.FieldError{Field: field, Error: "only one option can be selected"})
			}
			for _, v := range ans.Values {
				if !q.HasOption(v) {
					return nil, core.NewValidationError(nil, core.FieldError{Field: field, Error: fmt.Sprintf("%q is not an option", v)})
				}
			}
			ans.Text = joinValues(ans.Values)
		case FileUpload:
			if in.File != nil {
				url, err := svc.saveUpload(ctx, resp, q, in.File)
				if err != nil {
					return nil, err
				}
				ans.Values = []string{in.File.Filename}
				ans.FileURL = null.StringFrom(url)
			} else if len(ans.Values) > 1 {
				ans.Values = ans.Values[:1]
			}
			ans.Text = joinValues(ans.Values)
		default:
			if len(in.Values) > 0 {
				ans.Text = strings.TrimSpace(in.Values[0])
			}
			ans.Values = []string{}
			if ans.Text != "" {
				ans.Values = []string{ans.Text}
			}
		}
		answers = append(answers, ans)
	}
	return answers, nil
}

func (svc *Service) saveUpload(ctx context.Context, resp Response, q Question, up *Upload) (string, error) {
	name := path.Base(strings.ReplaceAll(up.Filename, "\\", "/"))
	if name == "." || name == "/" {
		name = "upload"
	}
	up.Filename = name
	// one directory per attempt: a rolled back submission never overwrites the committed file
	key := path.Join("responses", resp.FormID, resp.UserID, resp.ID, q.ID+"-"+name)
	url, err := svc.files.Save(ctx, key, up.Content, up.ContentType)
	if err != nil {
		return "", errors.Wrap(core.NewDependencyError("file storage", err), "saving upload")
	}
	return url, nil
}

// ListResponses returns the responses to a form of the calling teacher, with the grades they gave.
func (svc *Service) ListResponses(ctx context.Context, p user.Principal, formID string) ([]ResponseSummary, error) {
	f, err := getOwnedForm(ctx, svc.repo, p, formID)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryResponses(ctx, f.ID, p.ID)
}

// BuildGradingView pairs every active question of the form with the student's stored answer.
func (svc *Service) BuildGradingView(ctx context.Context, p user.Principal, formID, studentID string) (GradingView, error) {
	f, err := getOwnedForm(ctx, svc.repo, p, formID)
	if err != nil {
		return GradingView{}, err
	}
	resp, err := svc.getResponse(ctx, f.ID, studentID)
	if err != nil {
		return GradingView{}, err
	}
	student, err := svc.users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return GradingView{}, ErrResponseNotFound
		}
		return GradingView{}, errors.Wrap(err, "getting student")
	}

	qs, err := svc.repo.GetQuestions(ctx, f.ID, true)
	if err != nil {
		return GradingView{}, errors.Wrap(err, "getting questions")
	}
	answers, err := svc.repo.GetAnswers(ctx, resp.ID)
	if err != nil {
		return GradingView{}, errors.Wrap(err, "getting answers")
	}
	byQuestion := make(map[string]Answer, len(answers))
	for _, ans := range answers {
		byQuestion[ans.QuestionID] = ans
	}

	view := GradingView{
		FormID:      f.ID,
		FormTitle:   f.Title,
		Student:     StudentInfo{ID: student.ID, Name: student.DisplayName(), Email: student.Email},
		SubmittedAt: resp.SubmittedAt,
		Rows:        make([]GradingRow, 0, len(qs)),
	}
	for _, q := range qs {
		row := GradingRow{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			QuestionType: q.Type,
			Position:     q.Position,
			Values:       []string{},
		}
		if ans, ok := byQuestion[q.ID]; ok {
			row.StudentAnswer = null.StringFrom(ans.Text)
			row.Values = ans.Values
			row.FileURL = ans.FileURL
		}
		view.Rows = append(view.Rows, row)
	}

	if view.Grade, err = svc.GetGrade(ctx, p.ID, studentID, f.ID); err != nil {
		return GradingView{}, err
	}
	return view, nil
}

func (svc *Service) getResponse(ctx context.Context, formID, studentID string) (Response, error) {
	resp, err := svc.repo.GetResponse(ctx, formID, studentID)
	if err != nil {
		if errors.Cause(err) == ErrResponseNotFound {
			return Response{}, ErrResponseNotFound
		}
		return Response{}, errors.Wrap(err, "getting response")
	}
	return resp, nil
}

// UpsertGrade records the calling teacher's grade for a student's response, replacing any previous one,
// then notifies the student. Notification failures never fail the grading.
func (svc *Service) UpsertGrade(ctx context.Context, p user.Principal, ng NewGrade) (Grade, error) {
	if err := requireTeacher(p); err != nil {
		return Grade{}, err
	}
	if err := ng.Validate(svc.validate); err != nil {
		return Grade{}, err
	}
	f, err := getOwnedForm(ctx, svc.repo, p, ng.FormID)
	if err != nil {
		return Grade{}, err
	}
	if _, err = svc.getResponse(ctx, f.ID, ng.StudentID); err != nil {
		return Grade{}, err
	}

	g, err := svc.repo.UpsertGrade(ctx, Grade{
		ID:        newID(),
		TeacherID: p.ID,
		StudentID: ng.StudentID,
		FormID:    f.ID,
		Grade:     *ng.Grade,
		Comment:   ng.Comment,
		GradedAt:  nowFunc().UTC(),
	})
	if err != nil {
		return Grade{}, errors.Wrap(err, "upserting grade")
	}

	svc.notifyGrade(ctx, f, g)
	return g, nil
}

func (svc *Service) notifyGrade(ctx context.Context, f Form, g Grade) {
	student, err := svc.users.GetByID(ctx, g.StudentID)
	if err != nil {
		err = core.NewDependencyError("identity store", err)
		svc.logger.Error(fmt.Sprintf("form.notifyGrade: %v", err), err)
		return
	}
	svc.notifier.NotifyGrade(GradeNotification{
		StudentName:  student.DisplayName(),
		StudentEmail: student.Email,
		FormTitle:    f.Title,
		Grade:        g.Grade,
		Comment:      g.Comment,
	})
}

// GetGrade returns the grade given by teacherID, or nil when there is none.
func (svc *Service) GetGrade(ctx context.Context, teacherID, studentID, formID string) (*Grade, error) {
	g, err := svc.repo.GetGrade(ctx, teacherID, studentID, formID)
	if err != nil {
		if errors.Cause(err) == ErrGradeNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "getting grade")
	}
	return &g, nil
}

// ListStudentGrades returns the grades of the calling student, newest first.
func (svc *Service) ListStudentGrades(ctx context.Context, p user.Principal) ([]StudentGrade, error) {
	if err := requireStudent(p); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudentGrades(ctx, p.ID)
}
