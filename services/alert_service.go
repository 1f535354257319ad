// services/alert_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"cdp-analytics/config"
	"cdp-analytics/models"

	"github.com/hashicorp/go-multierror"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// Notifier delivers operator alerts about pipeline runs.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// messageSender is the slice of the Twilio client the alert service needs.
type messageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type AlertService struct {
	sender messageSender
	from   string
	to     []string
	logger *zap.Logger
}

func NewAlertService(cfg config.TwilioConfig, logger *zap.Logger) *AlertService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &AlertService{
		sender: client.Api,
		from:   cfg.FromNumber,
		to:     cfg.AlertTo,
		logger: logger,
	}
}

// Notify sends message to every configured recipient. Recipients prefixed
// with "whatsapp:" are reached through the WhatsApp sender.
func (s *AlertService) Notify(ctx context.Context, message string) error {
	var result *multierror.Error
	for _, to := range s.to {
		if err := ctx.Err(); err != nil {
			return err
		}

		from := s.from
		channel := "sms"
		if strings.HasPrefix(to, "whatsapp:") {
			from = "whatsapp:" + strings.TrimPrefix(s.from, "whatsapp:")
			channel = "whatsapp"
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(from)
		params.SetBody(message)

		resp, err := s.sender.CreateMessage(params)
		if err != nil {
			s.logger.Error("alert delivery failed", zap.String("to", to), zap.String("channel", channel), zap.Error(err))
			result = multierror.Append(result, fmt.Errorf("send to %s: %w", to, err))
			continue
		}
		if resp != nil && resp.Sid != nil {
			s.logger.Info("alert sent", zap.String("to", to), zap.String("sid", *resp.Sid))
		}
	}
	return result.ErrorOrNil()
}

// LogNotifier writes alerts to the log when no SMS provider is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, message string) error {
	n.Logger.Warn("pipeline alert", zap.String("message", message))
	return nil
}

// NewNotifier picks Twilio when it is fully configured.
func NewNotifier(cfg config.TwilioConfig, logger *zap.Logger) Notifier {
	if cfg.Enabled() {
		return NewAlertService(cfg, logger)
	}
	return LogNotifier{Logger: logger}
}

func runFailedMessage(run *models.TransformRun) string {
	return fmt.Sprintf("[CDP] customer_360 rebuild %s (%s) failed: %s",
		shortID(run), run.Trigger, run.ErrorMessage)
}

func integrityFailedMessage(run *models.TransformRun, err error) string {
	return fmt.Sprintf("[CDP] customer_360 rebuild %s wrote %d rows but failed integrity checks: %v",
		shortID(run), run.RowsWritten, err)
}

func shortID(run *models.TransformRun) string {
	id := run.ID.String()
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
