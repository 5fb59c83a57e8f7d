package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/darasalabs/darasa/apps/api/echo"
	"github.com/darasalabs/darasa/core"
	"github.com/darasalabs/darasa/core/course"
	"github.com/darasalabs/darasa/core/lecture"
	"github.com/darasalabs/darasa/core/setting"
	"github.com/darasalabs/darasa/core/user"
	emailsvc "github.com/darasalabs/darasa/services/email"
	logsvc "github.com/darasalabs/darasa/services/logger"
	schedsvc "github.com/darasalabs/darasa/services/scheduler"
	vimeosvc "github.com/darasalabs/darasa/services/vimeo"
	"github.com/darasalabs/darasa/storage/database"
	sqlxrepos "github.com/darasalabs/darasa/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	sqlxDB := sqlx.NewDb(db, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	hostSvc := vimeosvc.NewService(conf, logger, nil)
	scheduler := schedsvc.NewScheduler(conf, logger)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger, conf.WorkDir)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(sqlxDB), mailSvc, conf)
	crsSvc := course.NewService(sqlxrepos.NewCourseRepository(sqlxDB), usrSvc)
	lecSvc := lecture.NewService(
		sqlxrepos.NewLectureRepository(sqlxDB), crsSvc, hostSvc, scheduler, logger, validate, conf)
	setSvc := setting.NewService(sqlxrepos.NewSettingRepository(sqlxDB))

	// wire the backfill worker and start the pool
	scheduler.Register(lecture.TaskFetchVideoDetails, func(ctx context.Context, payload interface{}) error {
		task, err := decodeBackfillTask(payload)
		if err != nil {
			return err
		}
		return lecSvc.FetchVideoDetails(ctx, task)
	})
	scheduler.Start()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			CourseSvc:  crsSvc,
			LectureSvc: lecSvc,
			SettingSvc: setSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests and tasks a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = scheduler.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop scheduler gracefully: %v", err), err)
		}

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// decodeBackfillTask accepts both the in-process struct and its JSON form.
func decodeBackfillTask(payload interface{}) (lecture.BackfillTask, error) {
	switch p := payload.(type) {
	case lecture.BackfillTask:
		return p, nil
	case []byte:
		var task lecture.BackfillTask
		if err := json.Unmarshal(p, &task); err != nil {
			return lecture.BackfillTask{}, errors.Wrap(err, "decoding backfill task")
		}
		return task, nil
	}
	return lecture.BackfillTask{}, errors.Errorf("unexpected backfill payload type %T", payload)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
