package emailsvc

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/edutracks/console/core"
)

// ConsoleService writes each message to the logger as a MIME document.
type ConsoleService struct {
	from       mail.Address
	subjPrefix string
	logger     core.Logger

	mu   sync.Mutex
	sent []Message
}

var _ Service = (*ConsoleService)(nil)

func NewConsoleService(from mail.Address, subjPrefix string, logger core.Logger) *ConsoleService {
	return &ConsoleService{from: from, subjPrefix: subjPrefix, logger: logger}
}

func (svc *ConsoleService) Send(_ context.Context, msg Message) error {
	if !msg.HasRecipients() || !msg.HasContent() {
		return nil
	}
	body, err := svc.render(msg)
	if err != nil {
		return err
	}
	svc.logger.Info("email:\n" + body)

	svc.mu.Lock()
	svc.sent = append(svc.sent, msg)
	svc.mu.Unlock()
	return nil
}

// Sent returns the messages sent so far.
func (svc *ConsoleService) Sent() []Message {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]Message(nil), svc.sent...)
}

func (svc *ConsoleService) render(msg Message) (string, error) {
	body := new(strings.Builder)
	altW := multipart.NewWriter(body)

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.from.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain"}})
	if err != nil {
		return "", errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.Text)

	if msg.HTML != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html"}})
		if err != nil {
			return "", errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTML)
	}
	if err = altW.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart writer")
	}
	return body.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
