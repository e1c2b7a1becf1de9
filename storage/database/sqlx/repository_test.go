package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classforms/core/form"
	"github.com/trezcool/classforms/core/user"
	sqlxrepos "github.com/trezcool/classforms/storage/database/sqlx"
	"github.com/trezcool/classforms/tests"
)

func newID() string { return uuid.New().String() }

func TestUserRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)
	ctx := context.Background()

	hero := testutil.CreateStudent(t, repo, "Hero", "hero@test.cd")

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repo.CreateUser(ctx, user.User{Name: "Impostor", Email: "hero@test.cd", Roles: []string{user.RoleStudent}})
		assert.Equal(t, user.ErrEmailExists, err)
	})

	t.Run("get by email", func(t *testing.T) {
		usr, err := repo.GetUser(ctx, user.GetFilter{Email: "hero@test.cd"})
		require.NoError(t, err)
		assert.Equal(t, hero.ID, usr.ID)
		assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
		assert.NoError(t, usr.CheckPassword(testutil.Password))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetUser(ctx, user.GetFilter{ID: newID()})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("update", func(t *testing.T) {
		hero.IsActive = false
		hero.Roles = []string{user.RoleStudent, user.RoleTeacher}
		_, err := repo.UpdateUser(ctx, hero)
		require.NoError(t, err)

		usr, err := repo.GetUser(ctx, user.GetFilter{ID: hero.ID})
		require.NoError(t, err)
		assert.False(t, usr.IsActive)
		assert.True(t, usr.IsTeacher())
	})
}

func TestFormRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	repo := sqlxrepos.NewFormRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	teacher := testutil.CreateTeacher(t, usrRepo, "Sensei", "sensei@test.cd")
	alice := testutil.CreateStudent(t, usrRepo, "Alice", "alice@test.cd")
	bob := testutil.CreateStudent(t, usrRepo, "Bob", "bob@test.cd")

	quiz := form.Form{ID: newID(), TeacherID: teacher.ID, Title: "Quiz 1", CreatedAt: now, UpdatedAt: now}
	q1 := form.Question{ID: newID(), FormID: quiz.ID, Text: "Pick", Type: form.Checkbox, IsActive: true, Position: 1}
	q1.Options = []form.Option{
		{ID: newID(), QuestionID: q1.ID, Text: "a, b", Position: 1},
		{ID: newID(), QuestionID: q1.ID, Text: "c", Position: 2},
	}
	q2 := form.Question{ID: newID(), FormID: quiz.ID, Text: "Why?", Type: form.ShortText, IsActive: true, Position: 2}

	err := repo.InTx(ctx, func(tx form.Repository) error {
		if _, err := tx.CreateForm(ctx, quiz); err != nil {
			return err
		}
		if err := tx.InsertQuestions(ctx, []form.Question{q1, q2}); err != nil {
			return err
		}
		return tx.AssignStudents(ctx, quiz.ID, []string{alice.ID, bob.ID}, now)
	})
	require.NoError(t, err)

	t.Run("questions and options are ordered", func(t *testing.T) {
		qs, err := repo.GetQuestions(ctx, quiz.ID, true)
		require.NoError(t, err)
		require.Len(t, qs, 2)
		assert.Equal(t, q1.ID, qs[0].ID)
		require.Len(t, qs[0].Options, 2)
		assert.Equal(t, "a, b", qs[0].Options[0].Text)
		assert.Empty(t, qs[1].Options)
	})

	t.Run("assignment is idempotent", func(t *testing.T) {
		require.NoError(t, repo.AssignStudents(ctx, quiz.ID, []string{alice.ID}, now))

		ids, err := repo.QueryAssignedStudents(ctx, quiz.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{alice.ID, bob.ID}, ids)
	})

	resp := form.Response{ID: newID(), FormID: quiz.ID, UserID: alice.ID, SubmittedAt: now}

	t.Run("submission", func(t *testing.T) {
		_, err := repo.CreateResponse(ctx, resp)
		require.NoError(t, err)
		err = repo.InsertAnswers(ctx, []form.Answer{
			{ID: newID(), ResponseID: resp.ID, QuestionID: q1.ID, Position: 1, Text: "a, b, c", Values: []string{"a, b", "c"}},
			{ID: newID(), ResponseID: resp.ID, QuestionID: q2.ID, Position: 2},
		})
		require.NoError(t, err)

		answers, err := repo.GetAnswers(ctx, resp.ID)
		require.NoError(t, err)
		require.Len(t, answers, 2)
		assert.Equal(t, []string{"a, b", "c"}, answers[0].Values)
		assert.Equal(t, []string{}, answers[1].Values)
		assert.False(t, answers[1].FileURL.Valid)

		_, err = repo.CreateResponse(ctx, form.Response{ID: newID(), FormID: quiz.ID, UserID: alice.ID, SubmittedAt: now})
		assert.Equal(t, form.ErrAlreadySubmitted, err)
	})

	t.Run("outstanding forms", func(t *testing.T) {
		forms, err := repo.QueryOutstandingForms(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, forms)

		forms, err = repo.QueryOutstandingForms(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, forms, 1)
		assert.Equal(t, quiz.ID, forms[0].ID)
	})

	t.Run("grade upsert keeps one row", func(t *testing.T) {
		first, err := repo.UpsertGrade(ctx, form.Grade{ID: newID(), TeacherID: teacher.ID, StudentID: alice.ID, FormID: quiz.ID, Grade: 85, Comment: "Good", GradedAt: now})
		require.NoError(t, err)
		second, err := repo.UpsertGrade(ctx, form.Grade{ID: newID(), TeacherID: teacher.ID, StudentID: alice.ID, FormID: quiz.ID, Grade: 90, Comment: "Better", GradedAt: now})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 90, second.Grade)

		summaries, err := repo.QueryResponses(ctx, quiz.ID, teacher.ID)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, null.IntFrom(90), summaries[0].Grade)
		assert.Equal(t, "Alice", summaries[0].StudentName)

		grades, err := repo.QueryStudentGrades(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, grades, 1)
		assert.Equal(t, "Quiz 1", grades[0].FormTitle)
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, repo.DeleteForm(ctx, quiz.ID))

		_, err := repo.GetForm(ctx, quiz.ID)
		assert.Equal(t, form.ErrFormNotFound, err)
		_, err = repo.GetResponse(ctx, quiz.ID, alice.ID)
		assert.Equal(t, form.ErrResponseNotFound, err)
		assert.Equal(t, form.ErrFormNotFound, repo.DeleteForm(ctx, quiz.ID))
	})
}
