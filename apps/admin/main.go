package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/darasalabs/darasa/core"
	logsvc "github.com/darasalabs/darasa/services/logger"
	vimeosvc "github.com/darasalabs/darasa/services/vimeo"
	"github.com/darasalabs/darasa/storage/database"
	sqlxrepos "github.com/darasalabs/darasa/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// start CLI
	cli := commandLine{
		conf:    conf,
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(sqlx.NewDb(db, conf.Database.Engine)),
		hostSvc: vimeosvc.NewService(conf, logsvc.NewNopLogger(), nil),
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
