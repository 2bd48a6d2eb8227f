package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/directory"
	emailsvc "github.com/trezcool/elimu/services/email"
	logsvc "github.com/trezcool/elimu/services/logger"
	filestore "github.com/trezcool/elimu/storage/record/file"
	memstore "github.com/trezcool/elimu/storage/record/memory"
	pgstore "github.com/trezcool/elimu/storage/record/postgres"
	redisstore "github.com/trezcool/elimu/storage/record/redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	store, err := openStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up record store: %v", err), err)
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	acctRepo := account.NewRepository(store)
	acctSvc := account.NewService(acctRepo, mailSvc, conf)
	session := account.NewSessionManager(store, acctRepo)
	acctSvc.BindSession(session)
	dirSvc := directory.NewService(directory.NewRepository(store), acctSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	if _, err = acctSvc.EnsureAdmin(); err != nil {
		logger.Warn(fmt.Sprintf("admin bootstrap skipped: %v", err))
	}

	// restore the last persisted session, if any
	session.Rehydrate()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			AccountSvc: acctSvc,
			DirSvc:     dirSvc,
			Session:    session,
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

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func openStore(conf *core.Config) (core.RecordStore, error) {
	switch conf.Storage.Backend {
	case "redis":
		return redisstore.Open(conf.Storage.RedisURL, conf.AppName)
	case "postgres":
		return pgstore.Open(conf.Storage.PostgresDSN)
	case "memory":
		return memstore.Open(), nil
	default:
		return filestore.Open(conf.Storage.DataDir)
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
