package whatsapp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/kitchenledger/internal/config"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	client "github.com/mamadbah2/kitchenledger/pkg/clients/whatsapp"
)

type fakeClient struct {
	sent []client.SendTextMessageRequest
	err  error
}

func (f *fakeClient) SendTextMessage(_ context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, req)
	return &client.SendTextMessageResponse{}, nil
}

var enabledCfg = config.WhatsAppConfig{AccessToken: "t", PhoneNumberID: "123", AlertTo: "15550001111"}

func TestNotifySendsToAlertRecipient(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	svc := NewMetaWhatsAppService(enabledCfg, fc, nil)

	require.NoError(t, svc.Notify(context.Background(), "  3 ingredient prices are stale  "))
	require.Len(t, fc.sent, 1)
	require.Equal(t, "15550001111", fc.sent[0].To)
	require.Equal(t, "3 ingredient prices are stale", fc.sent[0].Body)

	require.NoError(t, svc.Notify(context.Background(), " "))
	require.Len(t, fc.sent, 1, "blank alerts are dropped")
}

func TestNotifyWithoutCredentialsOnlyLogs(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, fc, nil)

	require.NoError(t, svc.Notify(context.Background(), "weekly close done"))
	require.Empty(t, fc.sent)

	err := svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1", Message: "hi"})
	require.ErrorIs(t, err, ErrDisabled)
}

func TestSendOutboundSurfacesClientErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	svc := NewMetaWhatsAppService(enabledCfg, &fakeClient{err: boom}, nil)

	err := svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1", Message: "hi"})
	require.ErrorIs(t, err, boom)
}
