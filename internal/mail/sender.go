package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/phishsim/internal/config"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
)

type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

type smtpSender struct {
	cfg config.MailConfig
}

func NewSMTPSender(cfg config.MailConfig) Sender {
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(ctx context.Context, msg *Message) error {
	from := strings.TrimSpace(s.cfg.From)
	if s.cfg.Host == "" || s.cfg.Port == 0 || from == "" {
		return fmt.Errorf("smtp transport not configured: %w", appErr.ErrDelivery)
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients: %w", appErr.ErrDelivery)
	}
	msg.From = from
	raw, err := msg.Bytes()
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, from, msg.To, raw); err != nil {
		return fmt.Errorf("%w: %w", appErr.ErrDelivery, err)
	}
	logutil.GetLogger(ctx).Debug("mail sent",
		zap.Int("recipients", len(msg.To)),
		zap.String("subject", msg.Subject),
	)
	return nil
}
