package form

import (
	"fmt"
	"net/mail"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/classforms/core"
)

const gradeNotificationTemplate = "grade_notification"

// GradeNotification is sent to a student whose response was graded.
type GradeNotification struct {
	StudentName  string
	StudentEmail string
	FormTitle    string
	Grade        int
	Comment      string
}

// Notifier delivers grade notifications. NotifyGrade must not block the caller
// and must never fail it: delivery errors are logged.
type Notifier interface {
	NotifyGrade(n GradeNotification)
}

type EmailNotifier struct {
	mailSvc core.EmailService
	logger  core.Logger
	sync    bool
}

var _ Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(mailSvc core.EmailService, logger core.Logger) *EmailNotifier {
	vala.BeginValidation().Validate(
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &EmailNotifier{mailSvc: mailSvc, logger: logger}
}

// NewSyncEmailNotifier returns an EmailNotifier that delivers in the caller's goroutine (for tests).
func NewSyncEmailNotifier(mailSvc core.EmailService, logger core.Logger) *EmailNotifier {
	n := NewEmailNotifier(mailSvc, logger)
	n.sync = true
	return n
}

func (n *EmailNotifier) NotifyGrade(gn GradeNotification) {
	if n.sync {
		n.send(gn)
		return
	}
	go n.send(gn)
}

func (n *EmailNotifier) send(gn GradeNotification) {
	defer func() {
		if r := recover(); r != nil {
			err := core.NewDependencyError("email", errors.Errorf("panic: %v", r))
			n.logger.Error(fmt.Sprintf("form.EmailNotifier: %v", err), err)
		}
	}()

	if gn.StudentEmail == "" {
		err := core.NewDependencyError("email", errors.New("student has no email address"))
		n.logger.Warn(fmt.Sprintf("form.EmailNotifier: %v", err), err)
		return
	}

	n.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: gn.StudentName, Address: gn.StudentEmail}},
		Subject:      fmt.Sprintf("Your grade for %s", gn.FormTitle),
		TemplateName: gradeNotificationTemplate,
		TemplateData: gn,
	})
}
