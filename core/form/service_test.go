package form_test

import (
	"context"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classforms/core"
	"github.com/trezcool/classforms/core/form"
	"github.com/trezcool/classforms/core/user"
	"github.com/trezcool/classforms/storage/database/inmem"
	"github.com/trezcool/classforms/tests"
)

type fixture struct {
	ctx      context.Context
	usrRepo  user.Repository
	repo     form.Repository
	svc      *form.Service
	files    *testutil.FileStorage
	notifier *testutil.Notifier
	logger   *testutil.Logger

	teacher, otherTeacher, alice, bob user.User
}

func setup(t *testing.T) *fixture {
	db := inmemdb.Open()
	f := &fixture{
		ctx:      context.Background(),
		usrRepo:  inmemdb.NewUserRepository(db),
		repo:     inmemdb.NewFormRepository(db),
		files:    testutil.NewFileStorage(),
		notifier: &testutil.Notifier{},
		logger:   &testutil.Logger{},
	}
	f.svc = form.NewService(f.repo, user.NewService(f.usrRepo), f.files, f.notifier, testutil.NewValidator(), f.logger)

	f.teacher = testutil.CreateTeacher(t, f.usrRepo, "Sensei", "sensei@test.cd")
	f.otherTeacher = testutil.CreateTeacher(t, f.usrRepo, "Rival", "rival@test.cd")
	f.alice = testutil.CreateStudent(t, f.usrRepo, "Alice", "alice@test.cd")
	f.bob = testutil.CreateStudent(t, f.usrRepo, "Bob", "bob@test.cd")
	return f
}

// quiz creates "Quiz 1": Q1 short text, Q2 radio (A, B), assigned to students.
func (f *fixture) quiz(t *testing.T, students ...user.User) form.Form {
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	quiz, err := f.svc.CreateForm(f.ctx, f.teacher.Principal(), form.NewForm{
		Title: "Quiz 1",
		Questions: []form.NewQuestion{
			{Text: "Q1", Type: form.ShortText},
			{Text: "Q2", Type: form.Radio, Options: []string{"A", "B"}},
		},
		AssignedStudents: ids,
	})
	require.NoError(t, err)
	return quiz
}

func answers(values ...string) form.Submission {
	sub := form.Submission{Answers: make(map[int]form.AnswerInput)}
	for i, v := range values {
		sub.Answers[i] = form.AnswerInput{Values: []string{v}}
	}
	return sub
}

func TestService_CreateForm(t *testing.T) {
	f := setup(t)

	t.Run("teachers only", func(t *testing.T) {
		_, err := f.svc.CreateForm(f.ctx, f.alice.Principal(), form.NewForm{Title: "Quiz"})
		assert.Equal(t, form.ErrTeacherOnly, err)
	})

	t.Run("title required", func(t *testing.T) {
		_, err := f.svc.CreateForm(f.ctx, f.teacher.Principal(), form.NewForm{
			Title:     "  ",
			Questions: []form.NewQuestion{{Text: "Q1"}},
		})
		vErrs, ok := err.(validator.ValidationErrors)
		require.True(t, ok, "want validator.ValidationErrors, got %T", err)
		assert.Equal(t, "title", vErrs[0].Field())
	})

	t.Run("choice questions need options", func(t *testing.T) {
		_, err := f.svc.CreateForm(f.ctx, f.teacher.Principal(), form.NewForm{
			Title:     "Quiz",
			Questions: []form.NewQuestion{{Text: "Q1", Type: form.Dropdown}},
		})
		vErrs, ok := err.(validator.ValidationErrors)
		require.True(t, ok, "want validator.ValidationErrors, got %T", err)
		assert.Equal(t, "qoptions", vErrs[0].Tag())
	})

	t.Run("question text required when options given", func(t *testing.T) {
		_, err := f.svc.CreateForm(f.ctx, f.teacher.Principal(), form.NewForm{
			Title:     "Quiz",
			Questions: []form.NewQuestion{{Type: form.Radio, Options: []string{"A"}}},
		})
		vErrs, ok := err.(validator.ValidationErrors)
		require.True(t, ok, "want validator.ValidationErrors, got %T", err)
		assert.Equal(t, "qtext", vErrs[0].Tag())
	})

	t.Run("unknown question type", func(t *testing.T) {
		_, err := f.svc.CreateForm(f.ctx, f.teacher.Principal(), form.NewForm{
			Title:     "Quiz",
			Questions: []form.NewQuestion{{Text: "Q1", Type: "essay"}},
		})
		_, ok := err.(validator.ValidationErrors)
		assert.True(t, ok, "want validator.ValidationErrors, got %T", err)
	})

	t.Run("unknown students", func(t *testing.T) {
		_, err := f.svc.CreateForm(f.ctx, f.teacher.Principal(), form.NewForm{
			Title:            "Quiz",
			Questions:        []form.NewQuestion{{Text: "Q1"}},
			AssignedStudents: []string{f.otherTeacher.ID},
		})
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "want *core.ValidationError, got %T", err)
		assert.Equal(t, "assigned_students", vErr.Fields[0].Field)
	})

	t.Run("created", func(t *testing.T) {
		created, err := f.svc.CreateForm(f.ctx, f.teacher.Principal(), form.NewForm{
			Title: " Quiz 1 ",
			Questions: []form.NewQuestion{
				{Text: "Q1"},
				{}, // blank rows are skipped
				{Text: "Q2", Type: form.Checkbox, Options: []string{"A", " ", "B"}},
				{Text: "Q3", Type: form.ShortText, Options: []string{"ignored"}},
			},
			AssignedStudents: []string{f.alice.ID, f.alice.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, "Quiz 1", created.Title)
		assert.Equal(t, f.teacher.ID, created.TeacherID)
		assert.Equal(t, []string{f.alice.ID}, created.AssignedStudents)

		stored, err := f.svc.GetOwnForm(f.ctx, f.teacher.Principal(), created.ID)
		require.NoError(t, err)
		require.Len(t, stored.Questions, 3)
		for i, q := range stored.Questions {
			assert.Equal(t, i+1, q.Position)
			assert.True(t, q.IsActive)
		}
		assert.Equal(t, form.ShortText, stored.Questions[0].Type)
		require.Len(t, stored.Questions[1].Options, 2)
		assert.Equal(t, "A", stored.Questions[1].Options[0].Text)
		assert.Equal(t, "B", stored.Questions[1].Options[1].Text)
		assert.Empty(t, stored.Questions[2].Options)
		assert.Equal(t, []string{f.alice.ID}, stored.AssignedStudents)
	})
}

func TestService_ownership(t *testing.T) {
	f := setup(t)
	quiz := f.quiz(t, f.alice)
	rival := f.otherTeacher.Principal()

	_, err := f.svc.GetOwnForm(f.ctx, rival, quiz.ID)
	assert.Equal(t, form.ErrFormNotFound, err)

	_, err = f.svc.UpdateForm(f.ctx, rival, quiz.ID, form.UpdateForm{Title: "Hacked"})
	assert.Equal(t, form.ErrFormNotFound, err)

	_, err = f.svc.ListResponses(f.ctx, rival, quiz.ID)
	assert.Equal(t, form.ErrFormNotFound, err)

	assert.Equal(t, form.ErrFormNotFound, f.svc.DeleteForm(f.ctx, rival, quiz.ID))
	assert.Equal(t, form.ErrTeacherOnly, f.svc.DeleteForm(f.ctx, f.alice.Principal(), quiz.ID))
	assert.Equal(t, form.ErrFormNotFound, f.svc.DeleteForm(f.ctx, f.teacher.Principal(), "unknown"))

	forms, err := f.svc.ListOwnForms(f.ctx, rival)
	require.NoError(t, err)
	assert.Empty(t, forms)

	forms, err = f.svc.ListOwnForms(f.ctx, f.teacher.Principal())
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, quiz.ID, forms[0].ID)
}

func TestService_UpdateForm(t *testing.T) {
	f := setup(t)
	quiz := f.quiz(t, f.alice)

	updated, err := f.svc.UpdateForm(f.ctx, f.teacher.Principal(), quiz.ID, form.UpdateForm{
		Title:            "Quiz 2",
		AssignedStudents: []string{f.bob.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Quiz 2", updated.Title)
	assert.Len(t, updated.Questions, 2, "questions are kept when not provided")
	assert.ElementsMatch(t, []string{f.alice.ID, f.bob.ID}, updated.AssignedStudents)

	updated, err = f.svc.UpdateForm(f.ctx, f.teacher.Principal(), quiz.ID, form.UpdateForm{
		Title:     "Quiz 2",
		Questions: []form.NewQuestion{{Text: "Only question", Type: form.FileUpload}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Questions, 1)
	assert.Equal(t, form.FileUpload, updated.Questions[0].Type)

	_, err = f.svc.UpdateForm(f.ctx, f.teacher.Principal(), quiz.ID, form.UpdateForm{
		Title:     "Quiz 2",
		Questions: []form.NewQuestion{{}},
	})
	_, ok := err.(validator.ValidationErrors)
	assert.True(t, ok, "blank questions: want validator.ValidationErrors, got %T", err)
}

func TestService_eligibility(t *testing.T) {
	f := setup(t)
	quiz := f.quiz(t, f.alice)

	tests := []struct {
		name         string
		p            user.Principal
		wantEligible bool
		wantViewErr  error
	}{
		{name: "owner", p: f.teacher.Principal(), wantEligible: true},
		{name: "assigned student", p: f.alice.Principal(), wantEligible: true},
		{name: "unassigned student", p: f.bob.Principal(), wantViewErr: form.ErrNotAssigned},
		{name: "other teacher", p: f.otherTeacher.Principal(), wantViewErr: form.ErrFormNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := f.svc.IsEligible(f.ctx, tt.p, quiz.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEligible, ok)

			viewed, err := f.svc.ViewForm(f.ctx, tt.p, quiz.ID)
			if tt.wantViewErr != nil {
				assert.Equal(t, tt.wantViewErr, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, viewed.Questions, 2)
		})
	}

	ok, err := f.svc.IsEligible(f.ctx, f.alice.Principal(), "unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.SubmitAnswers(f.ctx, f.bob.Principal(), quiz.ID, answers("Hi", "A"))
	assert.Equal(t, form.ErrNotAssigned, err)

	_, err = f.svc.SubmitAnswers(f.ctx, f.teacher.Principal(), quiz.ID, answers("Hi", "A"))
	assert.Equal(t, form.ErrStudentOnly, err)
}

func TestService_submitAndGrade(t *testing.T) {
	f := setup(t)
	quiz := f.quiz(t, f.alice)
	teacher, alice := f.teacher.Principal(), f.alice.Principal()

	outstanding, err := f.svc.ListOutstanding(f.ctx, alice)
	require.NoError(t, err)
	require.Len(t, outstanding, 1)
	assert.Equal(t, quiz.ID, outstanding[0].ID)
	assert.Len(t, outstanding[0].Questions, 2)

	resp, err := f.svc.SubmitAnswers(f.ctx, alice, quiz.ID, answers("Hello", "A"))
	require.NoError(t, err)
	require.Len(t, resp.Answers, 2)

	outstanding, err = f.svc.ListOutstanding(f.ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, outstanding)

	summaries, err := f.svc.ListResponses(f.ctx, teacher, quiz.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, f.alice.ID, summaries[0].StudentID)
	assert.Equal(t, "Alice", summaries[0].StudentName)
	assert.False(t, summaries[0].Grade.Valid)

	view, err := f.svc.BuildGradingView(f.ctx, teacher, quiz.ID, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "Q1", view.Rows[0].QuestionText)
	assert.Equal(t, "Hello", view.Rows[0].StudentAnswer.String)
	assert.Equal(t, "A", view.Rows[1].StudentAnswer.String)
	assert.Nil(t, view.Grade)

	grade := 85
	g, err := f.svc.UpsertGrade(f.ctx, teacher, form.NewGrade{StudentID: f.alice.ID, FormID: quiz.ID, Grade: &grade, Comment: "Good"})
	require.NoError(t, err)
	assert.Equal(t, 85, g.Grade)

	notifications := f.notifier.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, form.GradeNotification{
		StudentName: "Alice", StudentEmail: "alice@test.cd", FormTitle: "Quiz 1", Grade: 85, Comment: "Good",
	}, notifications[0])

	// regrading replaces the grade
	grade = 90
	regraded, err := f.svc.UpsertGrade(f.ctx, teacher, form.NewGrade{StudentID: f.alice.ID, FormID: quiz.ID, Grade: &grade})
	require.NoError(t, err)
	assert.Equal(t, g.ID, regraded.ID)
	assert.Equal(t, 90, regraded.Grade)
	assert.Len(t, f.notifier.Notifications(), 2)

	summaries, err = f.svc.ListResponses(f.ctx, teacher, quiz.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 90, summaries[0].Grade.Int)

	view, err = f.svc.BuildGradingView(f.ctx, teacher, quiz.ID, f.alice.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Grade)
	assert.Equal(t, 90, view.Grade.Grade)

	grades, err := f.svc.ListStudentGrades(f.ctx, alice)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, "Quiz 1", grades[0].FormTitle)
	assert.Equal(t, 90, grades[0].Grade)
}

func TestService_SubmitAnswers_once(t *testing.T) {
	f := setup(t)
	quiz := f.quiz(t, f.alice)
	alice := f.alice.Principal()

	resp, err := f.svc.SubmitAnswers(f.ctx, alice, quiz.ID, answers("Hello", "A"))
	require.NoError(t, err)

	_, err = f.svc.SubmitAnswers(f.ctx, alice, quiz.ID, answers("Changed", "B"))
	assert.Equal(t, form.ErrAlreadySubmitted, err)

	stored, err := f.repo.GetAnswers(f.ctx, resp.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "Hello", stored[0].Text)
}

func TestService_SubmitAnswers_concurrent(t *testing.T) {
	f := setup(t)
	quiz := f.quiz(t, f.alice)
	alice := f.alice.Principal()

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SubmitAnswers(f.ctx, alice, quiz.ID, answers("Hello", "A"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if err == form.ErrAlreadySubmitted {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)

	summaries, err := f.svc.ListResponses(f.ctx, f.teacher.Principal(), quiz.ID)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestService_SubmitAnswers_answers(t *testing.T) {
	f := setup(t)
	teacher, alice := f.teacher.Principal(), f.alice.Principal()

	inactive := false
	quiz, err := f.svc.CreateForm(f.ctx, teacher, form.NewForm{
		Title: "Mixed",
		Questions: []form.NewQuestion{
			{Text: "Name", Type: form.ShortText},
			{Text: "Hidden", Type: form.ShortText, IsActive: &inactive},
			{Text: "Colors", Type: form.Checkbox, Options: []string{"Red", "Green", "Blue"}},
			{Text: "Essay", Type: form.FileUpload},
			{Text: "Skipped", Type: form.Dropdown, Options: []string{"X", "Y"}},
		},
		AssignedStudents: []string{f.alice.ID},
	})
	require.NoError(t, err)

	t.Run("invalid option", func(t *testing.T) {
		sub := form.Submission{Answers: map[int]form.AnswerInput{1: {Values: []string{"Pink"}}}}
		_, err := f.svc.SubmitAnswers(f.ctx, alice, quiz.ID, sub)
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "want *core.ValidationError, got %T", err)
		assert.Equal(t, "answer_1", vErr.Fields[0].Field)
	})

	t.Run("single choice takes one option", func(t *testing.T) {
		sub := form.Submission{Answers: map[int]form.AnswerInput{
			2: {File: &form.Upload{Filename: "essay.pdf", ContentType: "application/pdf", Content: strings.NewReader("draft")}},
			3: {Values: []string{"X", "Y"}},
		}}
		_, err := f.svc.SubmitAnswers(f.ctx, alice, quiz.ID, sub)
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "want *core.ValidationError, got %T", err)
		assert.Equal(t, "answer_3", vErr.Fields[0].Field)
	})

	// answers are matched to the active questions: the hidden one is not counted
	sub := form.Submission{Answers: map[int]form.AnswerInput{
		0: {Values: []string{"  Alice  "}},
		1: {Values: []string{"Red", "Blue", "Red"}},
		2: {File: &form.Upload{Filename: "../essay.pdf", ContentType: "application/pdf", Content: strings.NewReader("%PDF")}},
		9: {Values: []string{"extra answers are ignored"}},
	}}
	resp, err := f.svc.SubmitAnswers(f.ctx, alice, quiz.ID, sub)
	require.NoError(t, err)
	require.Len(t, resp.Answers, 4)

	assert.Equal(t, "Alice", resp.Answers[0].Text)
	assert.Equal(t, "Red, Blue", resp.Answers[1].Text)
	assert.Equal(t, []string{"Red", "Blue"}, resp.Answers[1].Values)
	assert.Equal(t, "essay.pdf", resp.Answers[2].Text)
	assert.True(t, resp.Answers[2].FileURL.Valid)
	assert.Equal(t, "", resp.Answers[3].Text)

	// the rejected attempt stored its own copy of the essay
	assert.Len(t, f.files.Files, 2)
	key := path.Join("responses", quiz.ID, f.alice.ID, resp.ID, resp.Answers[2].QuestionID+"-essay.pdf")
	require.Contains(t, f.files.Files, key)
	assert.Equal(t, "%PDF", string(f.files.Files[key]))
	assert.Equal(t, "https://files.test/"+key, resp.Answers[2].FileURL.String)

	view, err := f.svc.BuildGradingView(f.ctx, teacher, quiz.ID, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, view.Rows, 4)
	assert.True(t, view.Rows[3].StudentAnswer.Valid, "submitted empty")
	assert.Equal(t, "", view.Rows[3].StudentAnswer.String)
	assert.Equal(t, resp.Answers[2].FileURL, view.Rows[2].FileURL)
}

func TestService_ReplaceQuestions(t *testing.T) {
	f := setup(t)
	quiz := f.quiz(t, f.alice)
	teacher := f.teacher.Principal()

	_, err := f.svc.SubmitAnswers(f.ctx, f.alice.Principal(), quiz.ID, answers("Hello", "A"))
	require.NoError(t, err)

	replaced, err := f.svc.ReplaceQuestions(f.ctx, teacher, quiz.ID, []form.NewQuestion{
		{Text: "New Q1"},
		{Text: "New Q2", Type: form.Radio, Options: []string{"Yes", "No"}},
	})
	require.NoError(t, err)
	require.Len(t, replaced.Questions, 2)
	assert.Equal(t, "New Q1", replaced.Questions[0].Text)

	// previous answers are orphaned: the new questions have no stored answer
	view, err := f.svc.BuildGradingView(f.ctx, teacher, quiz.ID, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	for _, row := range view.Rows {
		assert.False(t, row.StudentAnswer.Valid)
	}

	_, err = f.svc.ReplaceQuestions(f.ctx, f.otherTeacher.Principal(), quiz.ID, []form.NewQuestion{{Text: "Q"}})
	assert.Equal(t, form.ErrFormNotFound, err)
}

func TestService_UpsertGrade_errors(t *testing.T) {
	f := setup(t)
	quiz := f.quiz(t, f.alice, f.bob)
	teacher := f.teacher.Principal()

	_, err := f.svc.SubmitAnswers(f.ctx, f.alice.Principal(), quiz.ID, answers("Hello", "A"))
	require.NoError(t, err)

	grade, tooHigh := 50, 101
	tests := []struct {
		name    string
		p       user.Principal
		ng      form.NewGrade
		wantErr error
	}{
		{name: "teachers only", p: f.alice.Principal(), ng: form.NewGrade{StudentID: f.alice.ID, FormID: quiz.ID, Grade: &grade}, wantErr: form.ErrTeacherOnly},
		{name: "not owner", p: f.otherTeacher.Principal(), ng: form.NewGrade{StudentID: f.alice.ID, FormID: quiz.ID, Grade: &grade}, wantErr: form.ErrFormNotFound},
		{name: "no response", p: teacher, ng: form.NewGrade{StudentID: f.bob.ID, FormID: quiz.ID, Grade: &grade}, wantErr: form.ErrResponseNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpsertGrade(f.ctx, tt.p, tt.ng)
			assert.Equal(t, tt.wantErr, err)
		})
	}

	for name, ng := range map[string]form.NewGrade{
		"grade required":     {StudentID: f.alice.ID, FormID: quiz.ID},
		"grade out of range": {StudentID: f.alice.ID, FormID: quiz.ID, Grade: &tooHigh},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.UpsertGrade(f.ctx, teacher, ng)
			_, ok := err.(validator.ValidationErrors)
			assert.True(t, ok, "want validator.ValidationErrors, got %T", err)
		})
	}

	_, err = f.svc.BuildGradingView(f.ctx, teacher, quiz.ID, f.bob.ID)
	assert.Equal(t, form.ErrResponseNotFound, err)
	assert.Empty(t, f.notifier.Notifications())
}

func TestService_DeleteForm(t *testing.T) {
	f := setup(t)
	quiz := f.quiz(t, f.alice)
	teacher := f.teacher.Principal()

	require.NoError(t, f.svc.DeleteForm(f.ctx, teacher, quiz.ID))

	_, err := f.svc.GetOwnForm(f.ctx, teacher, quiz.ID)
	assert.Equal(t, form.ErrFormNotFound, err)

	outstanding, err := f.svc.ListOutstanding(f.ctx, f.alice.Principal())
	require.NoError(t, err)
	assert.Empty(t, outstanding)

	_, err = f.svc.SubmitAnswers(f.ctx, f.alice.Principal(), quiz.ID, answers("Hello"))
	assert.Equal(t, form.ErrFormNotFound, err)
}

func TestService_assignments(t *testing.T) {
	f := setup(t)
	quiz := f.quiz(t)
	teacher := f.teacher.Principal()

	students, err := f.svc.ListAssignedStudents(f.ctx, teacher, quiz.ID)
	require.NoError(t, err)
	assert.Empty(t, students)

	require.NoError(t, f.svc.AssignStudents(f.ctx, teacher, quiz.ID, []string{f.bob.ID, f.alice.ID}))
	require.NoError(t, f.svc.AssignStudents(f.ctx, teacher, quiz.ID, []string{f.alice.ID}))

	students, err = f.svc.ListAssignedStudents(f.ctx, teacher, quiz.ID)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Alice", students[0].Name)
	assert.Equal(t, "Bob", students[1].Name)

	err = f.svc.AssignStudents(f.ctx, teacher, quiz.ID, []string{"not-a-uuid"})
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok, "want *core.ValidationError, got %T", err)
}

func TestService_UpsertGrade_failingMailer(t *testing.T) {
	f := setup(t)
	notifier := form.NewSyncEmailNotifier(&panickingMailer{}, f.logger)
	f.svc = form.NewService(f.repo, user.NewService(f.usrRepo), f.files, notifier, testutil.NewValidator(), f.logger)

	quiz := f.quiz(t, f.alice)
	_, err := f.svc.SubmitAnswers(f.ctx, f.alice.Principal(), quiz.ID, answers("Hello", "A"))
	require.NoError(t, err)

	grade := 85
	g, err := f.svc.UpsertGrade(f.ctx, f.teacher.Principal(), form.NewGrade{StudentID: f.alice.ID, FormID: quiz.ID, Grade: &grade, Comment: "Good"})
	require.NoError(t, err)
	assert.Equal(t, 85, g.Grade)

	stored, err := f.svc.GetGrade(f.ctx, f.teacher.ID, f.alice.ID, quiz.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, g.ID, stored.ID)

	entries := f.logger.Entries("error")
	require.NotEmpty(t, entries)
	_, ok := entries[len(entries)-1].Args[0].(*core.DependencyError)
	assert.True(t, ok, "want *core.DependencyError, got %T", entries[len(entries)-1].Args[0])
}
