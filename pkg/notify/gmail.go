package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/olimci/sleepsync/pkg/store/config"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Gmail sends through the Gmail API as cfg.From, using a service account
// with domain-wide delegation.
type Gmail struct {
	service *gmail.Service
	from    string
	to      string
	timeout time.Duration
	now     func() time.Time
}

func NewGmail(ctx context.Context, cfg config.Mail, opts ...option.ClientOption) (*Gmail, error) {
	if len(opts) == 0 {
		data, err := os.ReadFile(cfg.Gmail.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read gmail credentials: %w", err)
		}
		jwtCfg, err := google.JWTConfigFromJSON(data, gmail.GmailSendScope)
		if err != nil {
			return nil, fmt.Errorf("parse gmail credentials: %w", err)
		}
		jwtCfg.Subject = cfg.From
		opts = []option.ClientOption{option.WithTokenSource(jwtCfg.TokenSource(ctx))}
	}

	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Gmail{
		service: service,
		from:    cfg.From,
		to:      cfg.To,
		timeout: cfg.Timeout.Duration,
		now:     time.Now,
	}, nil
}

func (g *Gmail) Send(ctx context.Context, subject, body string) error {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	raw := compose(g.from, g.to, subject, body, g.now())
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}

	if _, err := g.service.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	return nil
}
