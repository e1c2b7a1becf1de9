package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/classforms/core/form"
)

// teacherMiddleware rejects callers without the teacher role.
func teacherMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !getContextPrincipal(ctx).IsTeacher() {
			return form.ErrTeacherOnly
		}
		return next(ctx)
	}
}

// studentMiddleware rejects callers without the student role.
func studentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !getContextPrincipal(ctx).IsStudent() {
			return form.ErrStudentOnly
		}
		return next(ctx)
	}
}
