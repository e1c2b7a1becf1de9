package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/classforms/apps/api/echo"
	"github.com/trezcool/classforms/core"
	"github.com/trezcool/classforms/core/form"
	"github.com/trezcool/classforms/core/user"
	emailsvc "github.com/trezcool/classforms/services/email"
	logsvc "github.com/trezcool/classforms/services/logger"
	storagesvc "github.com/trezcool/classforms/services/storage"
	"github.com/trezcool/classforms/storage/database"
	inmemdb "github.com/trezcool/classforms/storage/database/inmem"
	sqlxrepos "github.com/trezcool/classforms/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Repositories are backed by PostgreSQL, or by the in-memory store when database.inMemory is set.
	Repositories struct {
		dig.Out
		DB       *sqlx.DB // nil with the in-memory store
		UserRepo user.Repository
		FormRepo form.Repository
	}

	serverParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		UserSvc    *user.Service
		FormSvc    *form.Service
		Files      core.FileStorage
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Database.InMemory {
		loggerParam.Logger.Warn("using the in-memory database: data will not survive a restart")
		db := inmemdb.Open()
		return Repositories{
			UserRepo: inmemdb.NewUserRepository(db),
			FormRepo: inmemdb.NewFormRepository(db),
		}
	}

	setUp := func() (*sqlx.DB, error) {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout*3)
		defer cancel()

		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db.DB, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Repositories{
		DB:       db,
		UserRepo: sqlxrepos.NewUserRepository(db),
		FormRepo: sqlxrepos.NewFormRepository(db),
	}
}

func newFileStorage(conf *core.Config, logger core.Logger) core.FileStorage {
	var (
		files core.FileStorage
		err   error
	)
	switch conf.Storage.Backend {
	case "b2":
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		files, err = storagesvc.NewB2Storage(ctx, conf.Storage.B2AccountID, conf.Storage.B2AppKey, conf.Storage.B2Bucket)
	default:
		files, err = storagesvc.NewLocalStorage(conf.Storage.LocalDir, conf.Storage.BaseURL)
	}
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up %s file storage: %v", conf.Storage.Backend, err), err)
	}
	return files
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, log.New(os.Stdout, "EMAIL : ", log.LstdFlags), logger)
	}
	return emailsvc.NewSendgridService(conf, logger, conf.Server.NotificationTimeout)
}

func newNotifier(mailSvc core.EmailService, logger core.Logger) form.Notifier {
	return form.NewEmailNotifier(mailSvc, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	form.InitValidators(validate, translator)
	return validate
}

func newFormUserService(svc *user.Service) form.UserService {
	return svc
}

func newServer(p serverParams) *echoapi.Server {
	deps := echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		UserSvc:    p.UserSvc,
		FormSvc:    p.FormSvc,
	}
	if local, ok := p.Files.(*storagesvc.LocalStorage); ok {
		deps.UploadsDir = local.Dir()
	}
	return echoapi.NewServer(deps)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newFileStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(newNotifier))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(newFormUserService))
	must(c.Provide(form.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
