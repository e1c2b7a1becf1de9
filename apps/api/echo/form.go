package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classforms/core"
	"github.com/trezcool/classforms/core/form"
	"github.com/trezcool/classforms/core/user"
)

type formApi struct {
	svc     *form.Service
	userSvc *user.Service
}

func registerFormAPI(e *echo.Echo, auth echo.MiddlewareFunc, api *formApi) {
	// teacher endpoints
	e.GET("/create-form", api.createOptions, auth, teacherMiddleware)
	e.POST("/create-form", api.create, auth, teacherMiddleware)
	e.GET("/forms", api.list, auth, teacherMiddleware)
	e.GET("/edit-form/:id", api.retrieve, auth, teacherMiddleware)
	e.POST("/edit-form/:id", api.update, auth, teacherMiddleware)
	e.POST("/delete-form/:id", api.destroy, auth, teacherMiddleware)

	// owner or assigned student
	e.GET("/view-form/:id", api.view, auth)

	// student endpoints
	e.GET("/active-form", api.active, auth, studentMiddleware)
	e.POST("/submit-answer/:formId", api.submit, auth, studentMiddleware)
}

// Handlers

func (api *formApi) createOptions(ctx echo.Context) error {
	students, err := api.userSvc.QueryStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, FormOptionsResponse{
		QuestionTypes: form.QuestionTypes,
		Students:      studentInfos(students),
	})
}

func (api *formApi) create(ctx echo.Context) error {
	var data formPayload
	if err := data.Bind(ctx); err != nil {
		return errors.Wrap(err, "binding to formPayload")
	}

	f, err := api.svc.CreateForm(ctx.Request().Context(), getContextPrincipal(ctx), form.NewForm{
		Title:            data.Title,
		Questions:        data.Questions,
		AssignedStudents: data.AssignedStudents,
	})
	if err != nil {
		return errors.Wrap(err, "creating form")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *formApi) list(ctx echo.Context) error {
	forms, err := api.svc.ListOwnForms(ctx.Request().Context(), getContextPrincipal(ctx))
	if err != nil {
		return errors.Wrap(err, "listing own forms")
	}
	return ctx.JSON(http.StatusOK, forms)
}

func (api *formApi) retrieve(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	f, err := api.svc.GetOwnForm(reqCtx, getContextPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting own form")
	}
	students, err := api.userSvc.QueryStudents(reqCtx)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, EditFormResponse{
		Form:          f,
		QuestionTypes: form.QuestionTypes,
		Students:      studentInfos(students),
	})
}

func (api *formApi) update(ctx echo.Context) error {
	var data formPayload
	if err := data.Bind(ctx); err != nil {
		return errors.Wrap(err, "binding to formPayload")
	}

	f, err := api.svc.UpdateForm(ctx.Request().Context(), getContextPrincipal(ctx), ctx.Param("id"), form.UpdateForm{
		Title:            data.Title,
		Questions:        data.Questions,
		AssignedStudents: data.AssignedStudents,
	})
	if err != nil {
		return errors.Wrap(err, "updating form")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *formApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteForm(ctx.Request().Context(), getContextPrincipal(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting form")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Form deleted."})
}

func (api *formApi) view(ctx echo.Context) error {
	f, err := api.svc.ViewForm(ctx.Request().Context(), getContextPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "viewing form")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *formApi) active(ctx echo.Context) error {
	forms, err := api.svc.ListOutstanding(ctx.Request().Context(), getContextPrincipal(ctx))
	if err != nil {
		return errors.Wrap(err, "listing outstanding forms")
	}
	return ctx.JSON(http.StatusOK, forms)
}

func (api *formApi) submit(ctx echo.Context) error {
	var data submissionPayload
	sub, err := data.Bind(ctx)
	if err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	defer data.Close()

	resp, err := api.svc.SubmitAnswers(ctx.Request().Context(), getContextPrincipal(ctx), ctx.Param("formId"), sub)
	if err != nil {
		if errors.Cause(err) == form.ErrAlreadySubmitted {
			return core.NewValidationError(form.ErrAlreadySubmitted)
		}
		return errors.Wrap(err, "submitting answers")
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func studentInfos(users []user.User) []form.StudentInfo {
	infos := make([]form.StudentInfo, 0, len(users))
	for _, usr := range users {
		infos = append(infos, form.StudentInfo{ID: usr.ID, Name: usr.DisplayName(), Email: usr.Email})
	}
	return infos
}

type (
	FormOptionsResponse struct {
		QuestionTypes []form.QuestionType `json:"question_types"`
		Students      []form.StudentInfo  `json:"students"`
	}

	EditFormResponse struct {
		Form          form.Form           `json:"form"`
		QuestionTypes []form.QuestionType `json:"question_types"`
		Students      []form.StudentInfo  `json:"students"`
	}
)
