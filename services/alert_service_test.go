package services

import (
	"context"
	"errors"
	"testing"

	"cdp-analytics/config"
	"cdp-analytics/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

type sentMessage struct {
	to, from, body string
}

type fakeSender struct {
	sent    []sentMessage
	failFor string
}

func (f *fakeSender) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	msg := sentMessage{to: *params.To, from: *params.From, body: *params.Body}
	if msg.to == f.failFor {
		return nil, errors.New("twilio: unreachable")
	}
	f.sent = append(f.sent, msg)
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestAlertServiceNotifiesEveryRecipient(t *testing.T) {
	sender := &fakeSender{}
	svc := &AlertService{
		sender: sender,
		from:   "+15550001111",
		to:     []string{"+15550002222", "whatsapp:+15550003333"},
		logger: zap.NewNop(),
	}

	require.NoError(t, svc.Notify(context.Background(), "rebuild failed"))
	require.Len(t, sender.sent, 2)

	assert.Equal(t, sentMessage{to: "+15550002222", from: "+15550001111", body: "rebuild failed"}, sender.sent[0])
	assert.Equal(t, "whatsapp:+15550001111", sender.sent[1].from)
}

func TestAlertServiceCollectsFailures(t *testing.T) {
	sender := &fakeSender{failFor: "+15550002222"}
	svc := &AlertService{
		sender: sender,
		from:   "+15550001111",
		to:     []string{"+15550002222", "+15550004444"},
		logger: zap.NewNop(),
	}

	err := svc.Notify(context.Background(), "integrity failed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "+15550002222")
	assert.Len(t, sender.sent, 1, "remaining recipients still notified")
}

func TestNewNotifierFallsBackToLog(t *testing.T) {
	n := NewNotifier(config.TwilioConfig{}, zap.NewNop())
	_, ok := n.(LogNotifier)
	assert.True(t, ok)
	assert.NoError(t, n.Notify(context.Background(), "hello"))

	n = NewNotifier(config.TwilioConfig{
		AccountSID: "AC123", AuthToken: "token", FromNumber: "+1555", AlertTo: []string{"+1666"},
	}, zap.NewNop())
	_, ok = n.(*AlertService)
	assert.True(t, ok)
}

func TestRunAlertMessages(t *testing.T) {
	run := &models.TransformRun{
		ID:           uuid.MustParse("0b3c2f4e-1111-4222-8333-944455556666"),
		Trigger:      TriggerSchedule,
		RowsWritten:  10,
		ErrorMessage: "stage materialize: boom",
	}

	assert.Equal(t, "[CDP] customer_360 rebuild 0b3c2f4e (schedule) failed: stage materialize: boom", runFailedMessage(run))
	assert.Contains(t, integrityFailedMessage(run, errors.New("visit_count: expected 3, got 2")), "wrote 10 rows")
}
