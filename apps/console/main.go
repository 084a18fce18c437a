package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	consoleapi "github.com/edutracks/console/apps/console/echo"
	"github.com/edutracks/console/core"
	"github.com/edutracks/console/core/session"
	"github.com/edutracks/console/jobs"
	"github.com/edutracks/console/services/backend"
	"github.com/edutracks/console/services/logger"
	"github.com/edutracks/console/services/metrics"
	"github.com/edutracks/console/storage"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "CONSOLE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	storageLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "STORAGE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	storageLogger.Enable(!conf.Debug)

	// set up client storage
	engine, err := storage.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up %s storage: %v", conf.Storage.Engine, err), err)
	}
	defer func() {
		if err = engine.Close(); err != nil {
			storageLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	registry := session.NewRegistry(engine.Opener(), storageLogger)
	backend := backendsvc.NewClient(conf, logger)
	metrics := metricsvc.New()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q, %s storage", conf.Build, engine.Name))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Background Jobs

	scheduler := jobs.NewScheduler()
	sweeper := jobs.NewSessionSweeper(registry, conf.Server.TabIdleTimeout, metrics, logger)
	if err = scheduler.Schedule(conf.Server.SweepSchedule, func() { sweeper.Run() }); err != nil {
		logger.Fatal(fmt.Sprintf("scheduling session sweep: %v", err), err)
	}
	scheduler.Start()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus scrape endpoint.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(engine.Name)
	expvar.Publish("tabSessions", expvar.Func(func() interface{} { return registry.Len() }))

	registerDebugHandlers(http.DefaultServeMux, metrics)
	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Console Service

	server := consoleapi.NewServer(
		consoleapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Registry:   registry,
			Backend:    backend,
			Metrics:    metrics,
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

		scheduler.Stop(ctx)

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func registerDebugHandlers(mux *http.ServeMux, metrics *metricsvc.Metrics) {
	mux.Handle("/metrics", metrics.Handler())
}
