// Command devapi runs a local stand-in for the EduTracks REST backend.
// Every role gets a seeded account: <role>@edutracks.dev with the configured seed password.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	devapi "github.com/edutracks/console/apps/devapi/echo"
	"github.com/edutracks/console/core"
	"github.com/edutracks/console/services/email"
	"github.com/edutracks/console/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DEVAPI : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(false)

	users := devapi.NewUsers()
	if err := users.Seed(conf.DevAPI.SeedPwd); err != nil {
		logger.Fatal(fmt.Sprintf("seeding users: %v", err), err)
	}
	for _, email := range users.Emails() {
		logger.Info("seeded " + email)
	}

	mailer, err := emailsvc.New(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up mailer: %v", err), err)
	}

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	server := devapi.NewServer(devapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Users:      users,
		Mailer:     mailer,
		Validate:   validate,
		Translator: translator,
	})

	errs := make(chan error, 1)
	go func() {
		logger.Info("listening on " + conf.DevAPI.Address)
		errs <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		if err != nil {
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)
		}
	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}
