package main

import (
	"fmt"

	"github.com/trezcool/goose"

	appfs "github.com/edutracks/console/fs"
	"github.com/edutracks/console/storage/database"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	db, err := cli.connect()
	if err != nil {
		return err
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], db, appfs.FS, "migrations", arguments...)
}

func (cli *commandLine) createDB() error {
	if err := database.CreateIfNotExist(cli.conf); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "database %q ready\n", cli.conf.Database.Name)
	return nil
}
