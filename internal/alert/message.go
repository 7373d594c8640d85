package alert

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/nhle/fms-tracker/internal/model"
)

// Alert is a single delay notification for an overdue step.
type Alert struct {
	model.OverdueStep

	MessageID      string
	SentAt         time.Time
	ThresholdHours float64
}

// NewMessageID returns a globally unique Message-ID (without angle brackets).
func NewMessageID() string {
	return uuid.NewString() + "@fms.local"
}

// Subject returns the mail subject line for the alert.
func (a Alert) Subject() string {
	return fmt.Sprintf("Delay alert: Order %s - %s", a.OrderID, a.StepName)
}

// Body returns the plain-text mail body for the alert.
func (a Alert) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Step %q of order %s is overdue.\n\n", a.StepName, a.OrderID)
	fmt.Fprintf(&b, "Tool:          %s\n", a.ToolName)
	fmt.Fprintf(&b, "Priority:      %s\n", a.Priority)
	fmt.Fprintf(&b, "Planned date:  %s\n", a.PlannedDate)
	fmt.Fprintf(&b, "Hours late:    %.1f\n", a.HoursLate)
	fmt.Fprintf(&b, "Alert after:   %.0f hours\n", a.ThresholdHours)
	return b.String()
}

// ComposeMessage renders the alert as an RFC 5322 message.
func ComposeMessage(a Alert, from string, to []string) ([]byte, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("parsing from address %q: %w", from, err)
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("composing alert: no recipients")
	}
	toAddrs := make([]*mail.Address, 0, len(to))
	for _, addr := range to {
		parsed, err := mail.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient %q: %w", addr, err)
		}
		toAddrs = append(toAddrs, parsed)
	}

	var h mail.Header
	h.SetDate(a.SentAt)
	h.SetAddressList("From", []*mail.Address{fromAddr})
	h.SetAddressList("To", toAddrs)
	h.SetSubject(a.Subject())
	h.SetMessageID(a.MessageID)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("X-FMS-Task-ID", fmt.Sprintf("%d", a.TaskID))

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(w, a.Body()); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}

	return buf.Bytes(), nil
}
