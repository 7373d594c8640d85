package alert

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/fms-tracker/internal/model"
)

// PasswordFunc resolves the IMAP password at delivery time.
type PasswordFunc func() (string, error)

// IMAPNotifier appends each alert to an IMAP mailbox that managers watch.
type IMAPNotifier struct {
	cfg      model.IMAPConfig
	from     string
	to       []string
	password PasswordFunc
}

// NewIMAPNotifier creates an IMAPNotifier for the configured mailbox.
func NewIMAPNotifier(cfg model.IMAPConfig, from string, to []string, password PasswordFunc) *IMAPNotifier {
	return &IMAPNotifier{cfg: cfg, from: from, to: to, password: password}
}

// connect dials and authenticates. The caller must log out.
func (n *IMAPNotifier) connect() (*imapclient.Client, error) {
	addr := n.cfg.Host + ":" + n.cfg.Port

	var client *imapclient.Client
	var err error
	if n.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	password, err := n.password()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("loading IMAP password: %w", err)
	}

	if err := client.Login(n.cfg.Username, password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authenticating as %s: %w", n.cfg.Username, err)
	}

	return client, nil
}

// Notify composes the alert and APPENDs it to the configured mailbox,
// creating the mailbox on first use.
func (n *IMAPNotifier) Notify(_ context.Context, a Alert) error {
	raw, err := ComposeMessage(a, n.from, n.to)
	if err != nil {
		return err
	}

	client, err := n.connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	// CREATE fails when the mailbox already exists; APPEND reports the
	// real problem if it is missing.
	_ = client.Create(n.cfg.Mailbox, nil).Wait()

	appendCmd := client.Append(n.cfg.Mailbox, int64(len(raw)), &imap.AppendOptions{
		Time: a.SentAt,
	})
	if _, err := appendCmd.Write(raw); err != nil {
		_ = appendCmd.Close()
		return fmt.Errorf("writing alert to %s: %w", n.cfg.Mailbox, err)
	}
	if err := appendCmd.Close(); err != nil {
		return fmt.Errorf("closing append to %s: %w", n.cfg.Mailbox, err)
	}
	if _, err := appendCmd.Wait(); err != nil {
		return fmt.Errorf("appending alert to %s: %w", n.cfg.Mailbox, err)
	}

	return nil
}
