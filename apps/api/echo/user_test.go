package echoapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/classforms/apps/api/echo"
	"github.com/trezcool/classforms/core/form"
	"github.com/trezcool/classforms/core/user"
	"github.com/trezcool/classforms/tests"
)

func Test_userApi_register(t *testing.T) {
	f := setup(t)
	testutil.CreateStudent(t, f.usrRepo, "Hero", "hero@test.cd")

	tests := []httpTest{
		{
			name:     "email required",
			method:   http.MethodPost,
			path:     "/register",
			body:     []byte(`{"name": "Lol", "password": "Xq9#Zk7!Wm"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "this field is required"}`),
		},
		{
			name:     "duplicate email",
			method:   http.MethodPost,
			path:     "/register",
			body:     []byte(`{"name": "Impostor", "email": "HERO@test.cd", "password": "Xq9#Zk7!Wm"}`),
			wantCode: http.StatusConflict,
			wantData: []byte(`{"email": "a user with this email already exists"}`),
		},
		{
			name:     "bad json",
			method:   http.MethodPost,
			path:     "/register",
			body:     []byte(`{"email": 42}`),
			wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, f, tests)

	t.Run("student by default", func(t *testing.T) {
		rec := f.serve(newRequest(http.MethodPost, "/register", []byte(`{"name": "Alice", "email": "alice@test.cd", "password": "Xq9#Zk7!Wm"}`)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var usr user.User
		unmarshall(t, rec, &usr)
		assert.NotEmpty(t, usr.ID)
		assert.Equal(t, "alice@test.cd", usr.Email)
		assert.True(t, usr.IsStudent())
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("teacher", func(t *testing.T) {
		rec := f.serve(newRequest(http.MethodPost, "/register", []byte(`{"name": "Sensei", "email": "sensei@test.cd", "password": "Xq9#Zk7!Wm", "role": "teacher"}`)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var usr user.User
		unmarshall(t, rec, &usr)
		assert.True(t, usr.IsTeacher())
	})
}

func Test_userApi_login(t *testing.T) {
	f := setup(t)
	hero := testutil.CreateStudent(t, f.usrRepo, "Hero", "hero@test.cd")
	testutil.CreateUser(t, f.usrRepo, "N Dog", "ndog@test.cd", testutil.Password, []string{user.RoleStudent}, false)

	tests := []httpTest{
		{
			name:     "missing credentials",
			method:   http.MethodPost,
			path:     "/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "this field is required", "password": "this field is required"}`),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/login",
			body:     []byte(`{"email": "hero@test.cd", "password": "lol"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid email or password"}),
		},
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/login",
			body:     []byte(`{"email": "lol@test.cd", "password": "Xq9#Zk7!Wm"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid email or password"}),
		},
		{
			name:     "deactivated",
			method:   http.MethodPost,
			path:     "/login",
			body:     []byte(`{"email": "ndog@test.cd", "password": "Xq9#Zk7!Wm"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	runHTTPTests(t, f, tests)

	t.Run("valid", func(t *testing.T) {
		rec := f.serve(newRequest(http.MethodPost, "/login", []byte(`{"email": " Hero@Test.cd", "password": "Xq9#Zk7!Wm"}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		unmarshall(t, rec, &resp)
		assert.Equal(t, hero.ID, resp.User.ID)

		claims := new(echoapi.Claims)
		_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(f.conf.SecretKey), nil
		})
		require.NoError(t, err)
		assert.Equal(t, hero.ID, claims.Subject)
		assert.True(t, claims.IsStudent)
		assert.False(t, claims.IsTeacher)

		// the token opens authed endpoints
		rec = f.serve(newAuthRequest(http.MethodGet, "/dashboard", resp.Token))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_userApi_auth(t *testing.T) {
	f := setup(t)
	hero := testutil.CreateStudent(t, f.usrRepo, "Hero", "hero@test.cd")
	heroToken := f.token(t, hero)
	naughty := testutil.CreateUser(t, f.usrRepo, "N Dog", "ndog@test.cd", testutil.Password, []string{user.RoleStudent}, true)
	naughtyToken := f.token(t, naughty)
	_, err := user.NewService(f.usrRepo).SetActive(context.Background(), naughty, false)
	require.NoError(t, err)

	ghostToken := f.token(t, user.User{ID: "ghost", Roles: []string{user.RoleStudent}})

	tests := []httpTest{
		{
			name:     "missing token",
			method:   http.MethodGet,
			path:     "/dashboard",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "invalid token",
			method:   http.MethodGet,
			path:     "/dashboard",
			token:    heroToken + "lol",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name:     "unknown user",
			method:   http.MethodGet,
			path:     "/dashboard",
			token:    ghostToken,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name:     "deactivated since login",
			method:   http.MethodGet,
			path:     "/dashboard",
			token:    naughtyToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "student on teacher endpoint",
			method:   http.MethodGet,
			path:     "/forms",
			token:    heroToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: form.ErrTeacherOnly.Error()}),
		},
		{
			name:     "not found",
			method:   http.MethodGet,
			path:     "/lol",
			token:    heroToken,
			wantCode: http.StatusNotFound,
		},
	}
	runHTTPTests(t, f, tests)
}

func Test_userApi_refreshToken(t *testing.T) {
	f := setup(t)
	hero := testutil.CreateStudent(t, f.usrRepo, "Hero", "hero@test.cd")

	t.Run("within the refresh window", func(t *testing.T) {
		rec := f.serve(newAuthRequest(http.MethodPost, "/token-refresh", f.token(t, hero)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		unmarshall(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, hero.ID, resp.User.ID)
	})

	t.Run("refresh expired", func(t *testing.T) {
		origIat := time.Now().Add(-f.conf.Server.JWTRefreshExpirationDelta - time.Minute).Unix()
		token, err := echoapi.GenerateToken(f.conf, echoapi.NewClaims(f.conf, hero, origIat))
		require.NoError(t, err)

		rec := f.serve(newAuthRequest(http.MethodPost, "/token-refresh", token))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		}, rec)
	})
}
