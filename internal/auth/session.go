package auth

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
)

// dialTLS opens an IMAPS connection with an explicit dial timeout and waits
// for the server greeting.
func dialTLS(host, port string, timeout time.Duration) (*imapclient.Client, error) {
	addr := net.JoinHostPort(host, port)

	conn, err := tls.DialWithDialer(
		&net.Dialer{Timeout: timeout},
		"tcp", addr,
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	client := imapclient.New(conn, nil)
	if err := client.WaitGreeting(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("waiting for IMAP greeting from %s: %w", addr, err)
	}

	return client, nil
}

// imapSession implements Session on top of go-imap v2.
type imapSession struct {
	client *imapclient.Client
}

// MessageCount issues STATUS for the mailbox and returns its message count.
func (s *imapSession) MessageCount(mailbox string) (int, error) {
	data, err := s.client.Status(mailbox, &imap.StatusOptions{NumMessages: true}).Wait()
	if err != nil {
		return 0, fmt.Errorf("status of %q: %w", mailbox, err)
	}
	if data.NumMessages == nil {
		return 0, fmt.Errorf("status of %q returned no message count", mailbox)
	}
	return int(*data.NumMessages), nil
}

// LatestMessage selects the mailbox read-only and fetches the newest
// message's header section, parsing it with go-message.
func (s *imapSession) LatestMessage(mailbox string) (*Activity, error) {
	selected, err := s.client.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return nil, fmt.Errorf("selecting %q: %w", mailbox, err)
	}
	if selected.NumMessages == 0 {
		return nil, nil
	}

	headerSection := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierHeader,
		Peek:      true,
	}
	fetchCmd := s.client.Fetch(
		imap.SeqSetNum(selected.NumMessages),
		&imap.FetchOptions{
			Envelope:    true,
			BodySection: []*imap.FetchItemBodySection{headerSection},
		},
	)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("newest message in %q not found", mailbox)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message header: %w", err)
	}

	act := &Activity{}
	if raw := buf.FindBodySection(headerSection); raw != nil {
		if parsed := parseHeader(raw); parsed != nil {
			act = parsed
		}
	}

	// Fall back to the envelope for anything the header parse missed.
	if buf.Envelope != nil {
		if act.Subject == "" {
			act.Subject = buf.Envelope.Subject
		}
		if act.Date.IsZero() {
			act.Date = buf.Envelope.Date
		}
		if act.From == "" && len(buf.Envelope.From) > 0 {
			act.From = buf.Envelope.From[0].Addr()
		}
	}

	return act, nil
}

// Close logs out, falling back to closing the connection if the server does
// not answer the LOGOUT.
func (s *imapSession) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		return s.client.Close()
	}
	return nil
}

// parseHeader extracts sender, subject and date from a raw RFC 5322 header
// section. Returns nil if the header cannot be parsed at all.
func parseHeader(raw []byte) *Activity {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	defer mr.Close()

	act := &Activity{}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		act.From = from[0].Address
	}
	if subject, err := mr.Header.Subject(); err == nil {
		act.Subject = subject
	}
	if date, err := mr.Header.Date(); err == nil {
		act.Date = date
	}
	return act
}
