package alert_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/fms-tracker/internal/alert"
	"github.com/nhle/fms-tracker/internal/model"
)

func sampleAlert() alert.Alert {
	return alert.Alert{
		OverdueStep: model.OverdueStep{
			TaskID:      42,
			OrderID:     "ORD-9",
			ToolName:    "Die ORD-9",
			Priority:    model.PriorityUrgent,
			StepName:    "Programming & Machining",
			PlannedDate: "2024-01-05",
			HoursLate:   132,
		},
		MessageID:      "0b5c9a6e-test@fms.local",
		SentAt:         time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
		ThresholdHours: 48,
	}
}

func readMessage(t *testing.T, raw []byte) (mail.Header, string) {
	t.Helper()
	e, err := message.Read(bytes.NewReader(raw))
	require.NoError(t, err)
	body, err := io.ReadAll(e.Body)
	require.NoError(t, err)
	return mail.Header{Header: e.Header}, string(body)
}

func TestComposeMessage(t *testing.T) {
	a := sampleAlert()
	raw, err := alert.ComposeMessage(a, "FMS <fms@example.com>", []string{"boss@example.com", "qa@example.com"})
	require.NoError(t, err)

	h, body := readMessage(t, raw)

	subject, err := h.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Delay alert: Order ORD-9 - Programming & Machining", subject)

	id, err := h.MessageID()
	require.NoError(t, err)
	assert.Equal(t, a.MessageID, id)

	to, err := h.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, "qa@example.com", to[1].Address)

	assert.Equal(t, "42", h.Get("X-FMS-Task-ID"))
	assert.Contains(t, body, `Step "Programming & Machining" of order ORD-9 is overdue.`)
	assert.Contains(t, body, "Hours late:    132.0")
}

func TestComposeMessageErrors(t *testing.T) {
	_, err := alert.ComposeMessage(sampleAlert(), "not an address", []string{"a@example.com"})
	assert.Error(t, err)

	_, err = alert.ComposeMessage(sampleAlert(), "fms@example.com", nil)
	assert.ErrorContains(t, err, "no recipients")
}

func TestOutboxNotifier(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outbox")
	n := alert.NewOutboxNotifier(dir, "fms@example.com", []string{"boss@example.com"})
	a := sampleAlert()

	require.NoError(t, n.Notify(context.Background(), a))

	raw, err := os.ReadFile(filepath.Join(dir, alert.OutboxFileName(a.MessageID)))
	require.NoError(t, err)
	h, _ := readMessage(t, raw)
	subject, err := h.Subject()
	require.NoError(t, err)
	assert.Equal(t, a.Subject(), subject)
}

func TestOutboxFileName(t *testing.T) {
	assert.Equal(t, "abc_fms.local.eml", alert.OutboxFileName("<abc@fms.local>"))
	assert.Equal(t, "a_b_host.eml", alert.OutboxFileName("a/b@host"))
}

func TestNewNotifier(t *testing.T) {
	cfg := model.DefaultAppConfig().Alerts
	logger := zap.NewNop()

	n, err := alert.NewNotifier(cfg, logger, nil)
	require.NoError(t, err)
	assert.IsType(t, &alert.LogNotifier{}, n)

	cfg.Notifier = model.NotifierOutbox
	n, err = alert.NewNotifier(cfg, logger, nil)
	require.NoError(t, err)
	assert.IsType(t, &alert.OutboxNotifier{}, n)

	cfg.Notifier = model.NotifierIMAP
	_, err = alert.NewNotifier(cfg, logger, nil)
	assert.ErrorContains(t, err, "password")

	n, err = alert.NewNotifier(cfg, logger, func() (string, error) { return "secret", nil })
	require.NoError(t, err)
	assert.IsType(t, &alert.IMAPNotifier{}, n)

	cfg.Notifier = "pigeon"
	_, err = alert.NewNotifier(cfg, logger, nil)
	assert.ErrorContains(t, err, "pigeon")
}
