// Package whatsapp delivers operator alerts and summaries over the WhatsApp Cloud API.
package whatsapp

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/config"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	client "github.com/mamadbah2/kitchenledger/pkg/clients/whatsapp"
)

// Notifier delivers alerts to the configured operator.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// MessagingService describes the operations the HTTP layer and the scheduler can perform.
type MessagingService interface {
	Notifier
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// ErrDisabled is returned by SendOutbound when no WhatsApp credentials are configured.
var ErrDisabled = errors.New("whatsapp delivery is not configured")

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API. With no
// credentials configured, alerts are written to the log instead.
type MetaWhatsAppService struct {
	cfg    config.WhatsAppConfig
	client client.Client
	logger *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance. client may be nil when delivery is disabled.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

func (s *MetaWhatsAppService) enabled() bool {
	return s.client != nil && s.cfg.Enabled()
}

// Notify sends message to the alert recipient.
func (s *MetaWhatsAppService) Notify(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	if !s.enabled() {
		s.logger.Info("alert (delivery disabled)", zap.String("message", message))
		return nil
	}
	return s.send(ctx, s.cfg.AlertTo, message, false)
}

// SendOutbound lets operators push a message to any number.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	if !s.enabled() {
		return ErrDisabled
	}
	return s.send(ctx, req.To, req.Message, req.PreviewURL)
}

func (s *MetaWhatsAppService) send(ctx context.Context, to, body string, preview bool) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         to,
		Body:       body,
		PreviewURL: preview,
	})
	if err != nil {
		s.logger.Error("whatsapp delivery failed", zap.String("to", to), zap.Error(err))
		return err
	}

	id := ""
	if len(resp.Messages) > 0 {
		id = resp.Messages[0].ID
	}
	s.logger.Debug("whatsapp message sent", zap.String("to", to), zap.String("message_id", id))
	return nil
}
