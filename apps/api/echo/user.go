package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classforms/core"
	"github.com/trezcool/classforms/core/form"
	"github.com/trezcool/classforms/core/user"
)

type userApi struct {
	conf     *core.Config
	svc      *user.Service
	formSvc  *form.Service
	validate *validator.Validate
}

func registerUserAPI(e *echo.Echo, auth echo.MiddlewareFunc, api *userApi) {
	// un-authed endpoints
	e.POST("/register", api.register)
	e.POST("/login", api.login)

	// authed endpoints
	e.POST("/token-refresh", api.refreshToken, auth)
	e.GET("/dashboard", api.dashboard, auth)
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, NewClaims(api.conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	usr, _ := getContextUser(ctx)
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *userApi) dashboard(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	p := getContextPrincipal(ctx)
	resp := DashboardResponse{User: p}

	var err error
	if p.IsTeacher() {
		if resp.Forms, err = api.formSvc.ListOwnForms(reqCtx, p); err != nil {
			return errors.Wrap(err, "listing own forms")
		}
	}
	if p.IsStudent() {
		if resp.ActiveForms, err = api.formSvc.ListOutstanding(reqCtx, p); err != nil {
			return errors.Wrap(err, "listing outstanding forms")
		}
		if resp.Grades, err = api.formSvc.ListStudentGrades(reqCtx, p); err != nil {
			return errors.Wrap(err, "listing grades")
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

type (
	LoginRequest struct {
		Email    string `json:"email" form:"email" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	DashboardResponse struct {
		User        user.Principal      `json:"user"`
		Forms       []form.Form         `json:"forms,omitempty"`
		ActiveForms []form.Form         `json:"active_forms,omitempty"`
		Grades      []form.StudentGrade `json:"grades,omitempty"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
