package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/edutracks/console/core"
	"github.com/edutracks/console/storage"
	"github.com/edutracks/console/storage/database"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	var db *sql.DB
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	// start CLI
	cli := commandLine{
		conf: conf,
		out:  os.Stdout,
		connect: func() (*sql.DB, error) {
			var err error
			db, err = database.Connect(conf)
			return db, err
		},
		openStorage: func(ctx context.Context) (*storage.Engine, error) {
			return storage.Open(ctx, conf)
		},
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
