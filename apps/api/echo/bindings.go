package echoapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classforms/core"
	"github.com/trezcool/classforms/core/form"
)

var (
	questionParamRegex = regexp.MustCompile(`^question(?:_type)?_(\d+)$`)
	optionParamRegex   = regexp.MustCompile(`^option_(\d+)_(\d+)$`)
	answerParamRegex   = regexp.MustCompile(`^answer_(\d+)$`)

	errInvalidGrade = core.NewValidationError(nil, core.FieldError{Field: "grade", Error: "grade must be a whole number"})

	errInvalidAnswer = errors.New("answer must be a string, a number, a boolean or a list of them")
)

func isJSONRequest(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

// formPayload is the create/edit form body.
// HTML forms post it as title, question_{i}, question_type_{i}, option_{i}_{j} and students.
type formPayload struct {
	Title            string             `json:"title"`
	Questions        []form.NewQuestion `json:"questions"`
	AssignedStudents []string           `json:"assigned_students"`
}

func (fp *formPayload) Bind(ctx echo.Context) error {
	if isJSONRequest(ctx) {
		return ctx.Bind(fp)
	}

	params, err := ctx.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	fp.Title = params.Get("title")
	fp.Questions = questionsFromParams(params)
	for _, s := range append(params["students"], params["assigned_students"]...) {
		fp.AssignedStudents = append(fp.AssignedStudents, strings.Split(s, ",")...)
	}
	return nil
}

// questionsFromParams returns nil when params hold no question at all.
func questionsFromParams(params url.Values) []form.NewQuestion {
	options := make(map[int]map[int]string)
	indices := make(map[int]struct{})

	for key, vals := range params {
		if m := questionParamRegex.FindStringSubmatch(key); m != nil {
			i, _ := strconv.Atoi(m[1])
			indices[i] = struct{}{}
		} else if m := optionParamRegex.FindStringSubmatch(key); m != nil && len(vals) > 0 {
			i, _ := strconv.Atoi(m[1])
			j, _ := strconv.Atoi(m[2])
			indices[i] = struct{}{}
			if options[i] == nil {
				options[i] = make(map[int]string)
			}
			options[i][j] = vals[0]
		}
	}
	if len(indices) == 0 {
		return nil
	}

	qs := make([]form.NewQuestion, 0, len(indices))
	for _, i := range sortedKeys(indices) {
		nq := form.NewQuestion{
			Text: params.Get(fmt.Sprintf("question_%d", i)),
			Type: form.QuestionType(params.Get(fmt.Sprintf("question_type_%d", i))),
		}
		opts := make(map[int]struct{}, len(options[i]))
		for j := range options[i] {
			opts[j] = struct{}{}
		}
		for _, j := range sortedKeys(opts) {
			nq.Options = append(nq.Options, options[i][j])
		}
		qs = append(qs, nq)
	}
	return qs
}

func sortedKeys(m map[int]struct{}) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// submissionPayload binds answers posted as JSON {"answers": {"0": "A", "1": ["x", "y"]}}
// or as answer_{n} form fields, repeated for checkboxes and sent as file parts for uploads.
type submissionPayload struct {
	Answers map[string]json.RawMessage `json:"answers"`

	files []multipart.File
}

func (sp *submissionPayload) Bind(ctx echo.Context) (form.Submission, error) {
	sub := form.Submission{Answers: make(map[int]form.AnswerInput)}

	if isJSONRequest(ctx) {
		if err := ctx.Bind(sp); err != nil {
			return sub, err
		}
		for key, raw := range sp.Answers {
			n, err := strconv.Atoi(strings.TrimPrefix(key, "answer_"))
			if err != nil || n < 0 {
				continue
			}
			values, err := decodeJSONAnswer(raw)
			if err != nil {
				return sub, core.NewValidationError(nil, core.FieldError{Field: fmt.Sprintf("answer_%d", n), Error: errInvalidAnswer.Error()})
			}
			sub.Answers[n] = form.AnswerInput{Values: values}
		}
		return sub, nil
	}

	params, err := ctx.FormParams()
	if err != nil {
		return sub, echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	for key, vals := range params {
		if m := answerParamRegex.FindStringSubmatch(key); m != nil {
			n, _ := strconv.Atoi(m[1])
			sub.Answers[n] = form.AnswerInput{Values: vals}
		}
	}

	if mf := ctx.Request().MultipartForm; mf != nil {
		for key, fhs := range mf.File {
			m := answerParamRegex.FindStringSubmatch(key)
			if m == nil || len(fhs) == 0 {
				continue
			}
			n, _ := strconv.Atoi(m[1])
			up, err := sp.open(fhs[0])
			if err != nil {
				sp.Close()
				return sub, errors.Wrapf(err, "opening %s", key)
			}
			ans := sub.Answers[n]
			ans.File = up
			sub.Answers[n] = ans
		}
	}
	return sub, nil
}

func (sp *submissionPayload) open(fh *multipart.FileHeader) (*form.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	sp.files = append(sp.files, f)
	return &form.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Content:     f,
	}, nil
}

// Close releases the uploaded files opened by Bind.
func (sp *submissionPayload) Close() {
	for _, f := range sp.files {
		_ = f.Close()
	}
	sp.files = nil
}

// decodeJSONAnswer keeps numbers as written ("20231234", not "2.0231234e+07").
func decodeJSONAnswer(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var val interface{}
	if err := dec.Decode(&val); err != nil {
		return nil, err
	}
	if list, ok := val.([]interface{}); ok {
		values := make([]string, 0, len(list))
		for _, item := range list {
			v, ok := jsonScalar(item)
			if !ok {
				return nil, errInvalidAnswer
			}
			values = append(values, v)
		}
		return values, nil
	}
	if val == nil {
		return nil, nil
	}
	v, ok := jsonScalar(val)
	if !ok {
		return nil, errInvalidAnswer
	}
	return []string{v}, nil
}

func jsonScalar(val interface{}) (string, bool) {
	switch v := val.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

type gradePayload struct {
	form.NewGrade
}

func (gp *gradePayload) Bind(ctx echo.Context) error {
	if isJSONRequest(ctx) {
		return ctx.Bind(&gp.NewGrade)
	}

	gp.StudentID = ctx.FormValue("student_id")
	gp.FormID = ctx.FormValue("form_id")
	gp.Comment = ctx.FormValue("comment")
	if val := strings.TrimSpace(ctx.FormValue("grade")); val != "" {
		grade, err := strconv.Atoi(val)
		if err != nil {
			return errInvalidGrade
		}
		gp.Grade = &grade
	}
	return nil
}
