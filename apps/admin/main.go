package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classforms/core"
	"github.com/trezcool/classforms/core/user"
	"github.com/trezcool/classforms/storage/database"
	inmemdb "github.com/trezcool/classforms/storage/database/inmem"
	sqlxrepos "github.com/trezcool/classforms/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(nil)

	cli := commandLine{validate: validate}

	if conf.Database.InMemory {
		cli.usrSvc = user.NewService(inmemdb.NewUserRepository(inmemdb.Open()))
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		errAndDie(database.CreateIfNotExist(ctx, conf))
		db, err := database.Open(ctx, conf)
		cancel()
		errAndDie(err)
		defer db.Close()

		cli.db = db.DB
		cli.usrSvc = user.NewService(sqlxrepos.NewUserRepository(db))
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
