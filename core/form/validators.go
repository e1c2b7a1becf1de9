package form

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classforms/core"
)

var (
	questionTextTag  = "qtext"
	questionTextText = "question text is required"

	questionOptionsTag  = "qoptions"
	questionOptionsText = "choice questions need at least one option"
)

// InitValidators registers the form validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, questionTextTag, questionTextText)
	core.RegisterCustomTranslation(validate, translator, questionOptionsTag, questionOptionsText)
}

// questionStructValidation does struct level validation on NewQuestion.
func questionStructValidation(sl validator.StructLevel) {
	nq, ok := sl.Current().Interface().(NewQuestion)
	if !ok {
		return
	}
	if nq.Text == "" {
		sl.ReportError(nq.Text, "text", "Text", questionTextTag, "")
	}
	if nq.Type.IsChoice() && len(nq.Options) == 0 {
		sl.ReportError(nq.Options, "options", "Options", questionOptionsTag, "")
	}
}
