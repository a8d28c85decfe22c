// Package mailer notifies sellers by email.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/sinyoro/market-service/internal/config"
	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

var ErrNoRecipient = errors.New("listing has no email contact")

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	sender sender
	from   string
	logger *logger.Logger
}

func NewSMTPMailer(cfg *config.SMTPConfig, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: log.Named("mailer"),
	}
}

func buildSellerContactedMessage(from string, listing *domain.Listing) (*gomail.Message, error) {
	addr, err := mail.ParseAddress(listing.ContactDetail)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRecipient, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetAddressHeader("To", addr.Address, listing.SellerName)
	m.SetHeader("Subject", "Someone is interested in "+listing.Title)
	m.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nA buyer on Sinyoro Market wants to contact you about your listing %q.\nIt has now been viewed %d time(s).\n",
		listing.SellerName, listing.Title, listing.Views))
	return m, nil
}

// NotifySellerContacted emails the seller of an email-contact listing.
func (m *SMTPMailer) NotifySellerContacted(ctx context.Context, listing *domain.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := buildSellerContactedMessage(m.from, listing)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSend(msg); err != nil {
		m.logger.Error("SMTPMailer.NotifySellerContacted: send failed", zap.String("listing_id", listing.ID), zap.Error(err))
		return fmt.Errorf("send seller notification: %w", err)
	}
	m.logger.Info("SMTPMailer.NotifySellerContacted: seller notified", zap.String("listing_id", listing.ID))
	return nil
}
