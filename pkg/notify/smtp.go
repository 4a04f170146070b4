package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/olimci/sleepsync/pkg/store/config"
)

// SMTP sends through a submission server with STARTTLS and PLAIN auth.
type SMTP struct {
	addr     string
	host     string
	username string
	password string
	from     string
	to       string
	timeout  time.Duration
	now      func() time.Time
}

func NewSMTP(cfg config.Mail) *SMTP {
	return &SMTP{
		addr:     net.JoinHostPort(cfg.SMTP.Host, strconv.Itoa(cfg.SMTP.Port)),
		host:     cfg.SMTP.Host,
		username: cfg.SMTP.Username,
		password: cfg.SMTP.Password,
		from:     cfg.From,
		to:       cfg.To,
		timeout:  cfg.Timeout.Duration,
		now:      time.Now,
	}
}

// Send delivers one message. The whole session, from dial to QUIT, is bounded
// by the configured timeout and by ctx.
func (s *SMTP) Send(ctx context.Context, subject, body string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// unblock a pending read or write when ctx is cancelled early
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake %s: %w", s.addr, err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return fmt.Errorf("starttls %s: %w", s.addr, err)
		}
	}
	if s.username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(s.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(s.to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(compose(s.from, s.to, subject, body, s.now())); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	return c.Quit()
}
