// Package emailsvc sends transactional emails, either through SendGrid or to the log.
package emailsvc

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/edutracks/console/core"
)

type Message struct {
	To      []mail.Address
	Subject string
	Text    string
	HTML    string // optional
}

func (m Message) HasRecipients() bool {
	return len(m.To) > 0
}

func (m Message) HasContent() bool {
	return m.Text != "" || m.HTML != ""
}

type Service interface {
	Send(ctx context.Context, msg Message) error
}

// New returns a SendGrid service when an API key is configured, a console service otherwise.
func New(conf *core.Config, logger core.Logger) (Service, error) {
	from, err := mail.ParseAddress(conf.DevAPI.FromEmail)
	if err != nil {
		return nil, errors.Wrap(err, "parsing from email")
	}
	subjPrefix := "[" + conf.AppName + "] "
	if conf.DevAPI.SendgridKey == "" {
		return NewConsoleService(*from, subjPrefix, logger), nil
	}
	return NewSendgridService(conf.DevAPI.SendgridKey, *from, subjPrefix, logger), nil
}
