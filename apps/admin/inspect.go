package main

import (
	"context"
	"fmt"

	"github.com/edutracks/console/core/guard"
	"github.com/edutracks/console/core/nav"
	"github.com/edutracks/console/core/role"
	"github.com/edutracks/console/core/session"
	"github.com/edutracks/console/core/token"
)

func (cli *commandLine) inspect(tok, roleName, path string) error {
	p, err := token.Decode(tok)
	if err != nil {
		return err
	}

	if roleName == "" {
		roleName = p.String("role")
	}
	r := role.Role(roleName)
	sess := session.Session{Token: tok, Role: r, Username: p.String("sub")}

	if exp := p.ExpiresAt(); exp.IsZero() {
		fmt.Fprintln(cli.out, "expires: never")
	} else {
		fmt.Fprintf(cli.out, "expires: %s\n", exp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(cli.out, "live: %t\n", guard.IsLive(sess))
	if r.Valid() {
		fmt.Fprintf(cli.out, "role: %s\n", r)
	} else {
		fmt.Fprintf(cli.out, "role: %q (unknown, falls back to %s)\n", roleName, role.FallbackRole)
	}
	fmt.Fprintf(cli.out, "landing: %s\n", role.LandingPath(r))

	if path != "" {
		route := nav.Match(path)
		d := route.Guard.Evaluate(sess)
		switch {
		case d.IsRedirect():
			fmt.Fprintf(cli.out, "%s: %s guard, %s -> %s\n", path, route.Guard.Kind, d.State, d.Target)
		case route.Found():
			fmt.Fprintf(cli.out, "%s: %s guard, %s %s\n", path, route.Guard.Kind, d.State, route.Node.Page)
		default:
			fmt.Fprintf(cli.out, "%s: %s guard, %s not found\n", path, route.Guard.Kind, d.State)
		}
	}
	return nil
}

func (cli *commandLine) clearStorage(clientID string) error {
	ctx := context.Background()
	engine, err := cli.openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	if err = engine.Clear(ctx, clientID); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "cleared %s storage for client %s\n", engine.Name, clientID)
	return nil
}
