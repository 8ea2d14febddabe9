package bootstrap

import (
	"context"
	"fmt"
	"strings"

	appconfig "github.com/wolfman30/ghl-booking-gateway/internal/config"
	"github.com/wolfman30/ghl-booking-gateway/internal/notify"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

// Email provider names accepted in EMAIL_PROVIDER.
const (
	EmailProviderAuto     = "auto"
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSES      = "ses"
	EmailProviderStub     = "stub"
)

// SelectEmailProvider resolves "auto" to a concrete provider. SendGrid wins
// when its key and sender are set, then SES when a sender is set.
func SelectEmailProvider(cfg *appconfig.Config) string {
	if cfg == nil {
		return EmailProviderStub
	}
	pref := strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	switch pref {
	case EmailProviderSendGrid, EmailProviderSES, EmailProviderStub:
		return pref
	}
	switch {
	case cfg.SendGridAPIKey != "" && cfg.SendGridFromEmail != "":
		return EmailProviderSendGrid
	case cfg.SESFromEmail != "":
		return EmailProviderSES
	default:
		return EmailProviderStub
	}
}

// BuildEmailSender creates the email sender for booking notifications. It
// returns the provider actually used; a misconfigured provider falls back
// to the stub sender with a warning.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, string, error) {
	if logger == nil {
		logger = logging.Default()
	}

	provider := SelectEmailProvider(cfg)
	switch provider {
	case EmailProviderSendGrid:
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid selected but SENDGRID_API_KEY is not set; using stub email sender")
			return notify.NewStubEmailSender(logger), EmailProviderStub, nil
		}
		return sender, provider, nil
	case EmailProviderSES:
		if cfg.SESFromEmail == "" {
			logger.Warn("ses selected but SES_FROM_EMAIL is not set; using stub email sender")
			return notify.NewStubEmailSender(logger), EmailProviderStub, nil
		}
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		sender := notify.NewSESSender(newSESClient(awsCfg, cfg.AWSEndpointOverride), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		return sender, provider, nil
	default:
		return notify.NewStubEmailSender(logger), EmailProviderStub, nil
	}
}
