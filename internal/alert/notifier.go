package alert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nhle/fms-tracker/internal/model"
)

// Notifier delivers a delay alert.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// LogNotifier simulates delivery by writing the alert to the log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(_ context.Context, a Alert) error {
	n.logger.Info("simulated delay email",
		zap.String("order_id", a.OrderID),
		zap.Int64("task_id", a.TaskID),
		zap.String("step", a.StepName),
		zap.Float64("hours_late", a.HoursLate),
		zap.String("message_id", a.MessageID))
	return nil
}

// OutboxNotifier writes each alert as an .eml file into a directory, for
// pickup by an external mail relay.
type OutboxNotifier struct {
	dir  string
	from string
	to   []string
}

// NewOutboxNotifier creates an OutboxNotifier writing into dir.
func NewOutboxNotifier(dir, from string, to []string) *OutboxNotifier {
	return &OutboxNotifier{dir: dir, from: from, to: to}
}

// Notify composes the alert and writes it to <dir>/<message-id>.eml.
func (n *OutboxNotifier) Notify(_ context.Context, a Alert) error {
	raw, err := ComposeMessage(a, n.from, n.to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(n.dir, 0o755); err != nil {
		return fmt.Errorf("creating outbox %s: %w", n.dir, err)
	}

	path := filepath.Join(n.dir, OutboxFileName(a.MessageID))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing alert %s: %w", path, err)
	}
	return nil
}

// OutboxFileName maps a Message-ID to its outbox file name.
func OutboxFileName(messageID string) string {
	r := strings.NewReplacer("@", "_", "/", "_", "<", "", ">", "")
	return r.Replace(messageID) + ".eml"
}

// NewNotifier builds the notifier selected by cfg.Notifier.
func NewNotifier(cfg model.AlertConfig, logger *zap.Logger, password PasswordFunc) (Notifier, error) {
	switch cfg.Notifier {
	case "", model.NotifierLog:
		return NewLogNotifier(logger), nil
	case model.NotifierOutbox:
		return NewOutboxNotifier(cfg.OutboxDir, cfg.From, cfg.To), nil
	case model.NotifierIMAP:
		if password == nil {
			return nil, fmt.Errorf("imap notifier requires a password source")
		}
		return NewIMAPNotifier(cfg.IMAP, cfg.From, cfg.To, password), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
}
