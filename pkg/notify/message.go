package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/olimci/sleepsync/pkg/store/config"
)

// ErrDisabled is returned by NewSender when mail is turned off.
var ErrDisabled = errors.New("mail disabled")

// Sender delivers one plain-text message.
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

// NewSender returns the sender for cfg.Transport.
func NewSender(ctx context.Context, cfg config.Mail) (Sender, error) {
	switch cfg.Transport {
	case config.TransportSMTP:
		return NewSMTP(cfg), nil
	case config.TransportGmail:
		return NewGmail(ctx, cfg)
	case config.TransportNone, "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unsupported mail transport %q", cfg.Transport)
	}
}

// withTimeout bounds ctx by d unless ctx already ends sooner.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// compose renders an RFC 5322 message with CRLF line endings.
func compose(from, to, subject, body string, date time.Time) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}

	header("From", from)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body = strings.ReplaceAll(body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.Bytes()
}
