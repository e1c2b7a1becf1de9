package echoapi_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/classforms/apps/api/echo"
	"github.com/trezcool/classforms/core"
	"github.com/trezcool/classforms/core/form"
	"github.com/trezcool/classforms/core/user"
	"github.com/trezcool/classforms/storage/database/inmem"
	"github.com/trezcool/classforms/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	app      *echoapi.Server
	conf     *core.Config
	usrRepo  user.Repository
	files    *testutil.FileStorage
	notifier *testutil.Notifier
	logger   *testutil.Logger
}

func setup(t *testing.T) *fixture {
	db := inmemdb.Open()
	f := &fixture{
		conf:     testutil.NewConfig(t),
		usrRepo:  inmemdb.NewUserRepository(db),
		files:    testutil.NewFileStorage(),
		notifier: &testutil.Notifier{},
		logger:   &testutil.Logger{},
	}
	validate, translator := testutil.NewValidatorWithTranslator()
	usrSvc := user.NewService(f.usrRepo)
	formSvc := form.NewService(inmemdb.NewFormRepository(db), usrSvc, f.files, f.notifier, validate, f.logger)

	f.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           f.conf,
		Logger:         f.logger,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        usrSvc,
		FormSvc:        formSvc,
		DisableReqLogs: true,
	})
	return f
}

func (f *fixture) token(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(f.conf, echoapi.NewClaims(f.conf, usr))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

func (f *fixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func newFormRequest(path, token string, data url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(data.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return req
}

type multipartFile struct {
	field, filename string
	content         []byte
}

func newMultipartRequest(t *testing.T, path, token string, data url.Values, files ...multipartFile) *http.Request {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for key, vals := range data {
		for _, val := range vals {
			require.NoError(t, w.WriteField(key, val))
		}
	}
	for _, file := range files {
		fw, err := w.CreateFormFile(file.field, file.filename)
		require.NoError(t, err)
		_, err = fw.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return req
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshall() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, f *fixture, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.serve(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}
