package form

import (
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classforms/core"
)

type QuestionType string

// Question types
const (
	ShortText  QuestionType = "short_text"
	Radio      QuestionType = "radio"
	Checkbox   QuestionType = "checkbox"
	Dropdown   QuestionType = "dropdown"
	FileUpload QuestionType = "file_upload"
)

var QuestionTypes = []QuestionType{ShortText, Radio, Checkbox, Dropdown, FileUpload}

// IsChoice reports whether answers must be picked from the question's options.
func (t QuestionType) IsChoice() bool {
	return t == Radio || t == Checkbox || t == Dropdown
}

func (t QuestionType) IsValid() bool {
	for _, qt := range QuestionTypes {
		if t == qt {
			return true
		}
	}
	return false
}

type Option struct {
	ID         string `json:"id" db:"id"`
	QuestionID string `json:"-" db:"question_id"`
	Text       string `json:"text" db:"text"`
	Position   int    `json:"position" db:"position"`
}

type Question struct {
	ID       string       `json:"id" db:"id"`
	FormID   string       `json:"-" db:"form_id"`
	Text     string       `json:"text" db:"text"`
	Type     QuestionType `json:"type" db:"type"`
	IsActive bool         `json:"is_active" db:"is_active"`
	Position int          `json:"position" db:"position"` // 1-based
	Options  []Option     `json:"options,omitempty" db:"-"`
}

// HasOption reports whether text is one of the question's options.
func (q Question) HasOption(text string) bool {
	for _, opt := range q.Options {
		if opt.Text == text {
			return true
		}
	}
	return false
}

type Form struct {
	ID               string     `json:"id" db:"id"`
	TeacherID        string     `json:"teacher_id" db:"teacher_id"`
	Title            string     `json:"title" db:"title"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	Questions        []Question `json:"questions,omitempty" db:"-"`
	AssignedStudents []string   `json:"assigned_students,omitempty" db:"-"`
}

type FormFilter struct {
	TeacherID string
}

// Response records that a student submitted a form.
type Response struct {
	ID          string    `json:"id" db:"id"`
	FormID      string    `json:"form_id" db:"form_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
	Answers     []Answer  `json:"answers,omitempty" db:"-"`
}

// Answer is a student's answer to one question.
// Values holds the selected options (checkbox) or the entered value, in order;
// Text is its human-readable rendition.
type Answer struct {
	ID         string      `json:"id"`
	ResponseID string      `json:"-"`
	QuestionID string      `json:"question_id"`
	Position   int         `json:"position"`
	Text       string      `json:"text"`
	Values     []string    `json:"values"`
	FileURL    null.String `json:"file_url"`
}

type ResponseSummary struct {
	ResponseID   string      `json:"response_id" db:"response_id"`
	StudentID    string      `json:"student_id" db:"student_id"`
	StudentName  string      `json:"student_name" db:"student_name"`
	StudentEmail string      `json:"student_email" db:"student_email"`
	SubmittedAt  time.Time   `json:"submitted_at" db:"submitted_at"`
	Grade        null.Int    `json:"grade" db:"grade"`
	Comment      null.String `json:"comment" db:"comment"`
}

type Grade struct {
	ID        string    `json:"id" db:"id"`
	TeacherID string    `json:"teacher_id" db:"teacher_id"`
	StudentID string    `json:"student_id" db:"student_id"`
	FormID    string    `json:"form_id" db:"form_id"`
	Grade     int       `json:"grade" db:"grade"`
	Comment   string    `json:"comment" db:"comment"`
	GradedAt  time.Time `json:"graded_at" db:"graded_at"`
}

// StudentGrade is a grade as seen by the graded student.
type StudentGrade struct {
	FormID    string    `json:"form_id" db:"form_id"`
	FormTitle string    `json:"form_title" db:"form_title"`
	Grade     int       `json:"grade" db:"grade"`
	Comment   string    `json:"comment" db:"comment"`
	GradedAt  time.Time `json:"graded_at" db:"graded_at"`
}

// GradingRow pairs an active question with the student's stored answer.
// A null StudentAnswer means no answer is stored, unlike "" which was submitted empty.
type GradingRow struct {
	QuestionID    string       `json:"question_id"`
	QuestionText  string       `json:"question_text"`
	QuestionType  QuestionType `json:"question_type"`
	Position      int          `json:"position"`
	StudentAnswer null.String  `json:"student_answer"`
	Values        []string     `json:"values"`
	FileURL       null.String  `json:"file_url"`
}

type StudentInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type GradingView struct {
	FormID      string       `json:"form_id"`
	FormTitle   string       `json:"form_title"`
	Student     StudentInfo  `json:"student"`
	SubmittedAt time.Time    `json:"submitted_at"`
	Rows        []GradingRow `json:"rows"`
	Grade       *Grade       `json:"grade"`
}

// NewQuestion contains information needed to add a Question to a Form.
type NewQuestion struct {
	Text     string       `json:"text"`
	Type     QuestionType `json:"type" validate:"omitempty,oneof=short_text radio checkbox dropdown file_upload"`
	Options  []string     `json:"options"`
	IsActive *bool        `json:"is_active"`
}

// isBlank reports rows with neither text nor options (empty rows of the HTML form).
func (nq NewQuestion) isBlank() bool {
	return nq.Text == "" && len(nq.Options) == 0
}

func (nq *NewQuestion) clean() {
	nq.Text = core.CleanString(nq.Text)
	nq.Type = QuestionType(core.CleanString(string(nq.Type), true /* lower */))
	if nq.Type == "" {
		nq.Type = ShortText
	}
	nq.Options = core.CleanStrings(nq.Options)
}

func cleanQuestions(nqs []NewQuestion) []NewQuestion {
	if nqs == nil {
		return nil
	}
	cleaned := make([]NewQuestion, 0, len(nqs))
	for _, nq := range nqs {
		nq.clean()
		if nq.isBlank() {
			continue
		}
		cleaned = append(cleaned, nq)
	}
	return cleaned
}

// NewForm contains information needed to create a new Form.
type NewForm struct {
	Title            string        `json:"title" validate:"notblank"`
	Questions        []NewQuestion `json:"questions" validate:"min=1,dive"`
	AssignedStudents []string      `json:"assigned_students"`
}

func (nf *NewForm) Validate(validate *validator.Validate) error {
	nf.Title = core.CleanString(nf.Title)
	nf.Questions = cleanQuestions(nf.Questions)
	if nf.Questions == nil {
		nf.Questions = []NewQuestion{}
	}
	nf.AssignedStudents = uniqueStrings(core.CleanStrings(nf.AssignedStudents))
	return validate.Struct(nf)
}

// UpdateForm defines what may be changed on an existing Form.
// Questions, when provided, replace all the existing ones.
// AssignedStudents are added to the current assignments.
type UpdateForm struct {
	Title            string        `json:"title" validate:"notblank"`
	Questions        []NewQuestion `json:"questions" validate:"omitempty,min=1,dive"`
	AssignedStudents []string      `json:"assigned_students"`
}

func (uf *UpdateForm) Validate(validate *validator.Validate) error {
	uf.Title = core.CleanString(uf.Title)
	uf.Questions = cleanQuestions(uf.Questions)
	uf.AssignedStudents = uniqueStrings(core.CleanStrings(uf.AssignedStudents))
	return validate.Struct(uf)
}

type questionsInput struct {
	Questions []NewQuestion `json:"questions" validate:"min=1,dive"`
}

// Upload is a file submitted as the answer to a file_upload question.
type Upload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// AnswerInput is the raw answer to one question: the submitted values and/or file.
type AnswerInput struct {
	Values []string
	File   *Upload
}

// Submission maps 0-based question positions (answer_{n}) to answers.
type Submission struct {
	Answers map[int]AnswerInput
}

// NewGrade contains information needed to grade a student's response.
type NewGrade struct {
	StudentID string `json:"student_id" validate:"required"`
	FormID    string `json:"form_id" validate:"required"`
	Grade     *int   `json:"grade" validate:"required,min=0,max=100"`
	Comment   string `json:"comment"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.StudentID = core.CleanString(ng.StudentID)
	ng.FormID = core.CleanString(ng.FormID)
	ng.Comment = core.CleanString(ng.Comment)
	return validate.Struct(ng)
}

func uniqueStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ss))
	unique := make([]string, 0, len(ss))
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}
	return unique
}

func joinValues(values []string) string {
	return strings.Join(values, ", ")
}
