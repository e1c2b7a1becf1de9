package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classforms/core/form"
)

type resultsApi struct {
	svc *form.Service
}

func registerResultsAPI(e *echo.Echo, auth echo.MiddlewareFunc, api *resultsApi) {
	e.GET("/results/:formId", api.list, auth, teacherMiddleware)
	e.GET("/results/view/:formId/:studentId", api.review, auth, teacherMiddleware)
	e.POST("/results/grade", api.grade, auth, teacherMiddleware)
}

// Handlers

func (api *resultsApi) list(ctx echo.Context) error {
	responses, err := api.svc.ListResponses(ctx.Request().Context(), getContextPrincipal(ctx), ctx.Param("formId"))
	if err != nil {
		return errors.Wrap(err, "listing responses")
	}
	return ctx.JSON(http.StatusOK, responses)
}

func (api *resultsApi) review(ctx echo.Context) error {
	view, err := api.svc.BuildGradingView(ctx.Request().Context(), getContextPrincipal(ctx), ctx.Param("formId"), ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "building grading view")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *resultsApi) grade(ctx echo.Context) error {
	var data gradePayload
	if err := data.Bind(ctx); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}

	g, err := api.svc.UpsertGrade(ctx.Request().Context(), getContextPrincipal(ctx), data.NewGrade)
	if err != nil {
		return errors.Wrap(err, "grading response")
	}
	return ctx.JSON(http.StatusOK, g)
}
