package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/edutracks/console/core"
	"github.com/edutracks/console/storage"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf        *core.Config
	out         io.Writer
	connect     func() (*sql.DB, error)
	openStorage func(ctx context.Context) (*storage.Engine, error)
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command against the client storage database")
	fmt.Fprintln(cli.out, "  createdb - create the app database user & database if they do not exist")
	fmt.Fprintln(cli.out, "  inspect [-role ROLE] [-path PATH] - decode a token (prompted next) and show where it routes")
	fmt.Fprintln(cli.out, "  clearstorage -client ID - delete everything stored for a browser client")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	inspectCmd := flag.NewFlagSet("inspect", flag.ContinueOnError)
	inspectCmd.SetOutput(cli.out)
	inspectRole := inspectCmd.String("role", "", "The stored role. Defaults to the token's role claim.")
	inspectPath := inspectCmd.String("path", "", "A console path to evaluate the token against.")

	clearCmd := flag.NewFlagSet("clearstorage", flag.ContinueOnError)
	clearCmd.SetOutput(cli.out)
	clearClient := clearCmd.String("client", "", "The edutracks_client cookie value.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "createdb":
		return cli.createDB()
	case "inspect":
		if err := inspectCmd.Parse(args[2:]); err != nil {
			return err
		}
		fmt.Fprint(cli.out, "Enter token:")
		tok, err := readPasswordFunc(syscall.Stdin)
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(tok) == 0 {
			inspectCmd.Usage()
			return errHelp
		}
		return cli.inspect(string(tok), *inspectRole, *inspectPath)
	case "clearstorage":
		if err := clearCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *clearClient == "" {
			clearCmd.Usage()
			return errHelp
		}
		return cli.clearStorage(*clearClient)
	default:
		cli.printUsage()
		return errHelp
	}
}
