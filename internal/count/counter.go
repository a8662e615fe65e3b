// Package count queries folder message counts over an authenticated mail
// session.
package count

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/mailcheck/internal/auth"
	"github.com/nhle/mailcheck/internal/logging"
	"github.com/nhle/mailcheck/internal/model"
)

// InboxFolder is the fixed inbox mailbox name. RFC 3501 reserves it
// case-insensitively, so it never needs locale fallbacks.
const InboxFolder = "INBOX"

// CountError indicates that a single folder could not be selected or
// counted. It is reported per-folder and never fails the whole credential
// on its own.
type CountError struct {
	Mailbox string
	Err     error
}

func (e *CountError) Error() string {
	return fmt.Sprintf("counting %q: %v", e.Mailbox, e.Err)
}

func (e *CountError) Unwrap() error {
	return e.Err
}

// IsCountError reports whether err (or any error in its chain) is a CountError.
func IsCountError(err error) bool {
	var countErr *CountError
	return errors.As(err, &countErr)
}

// Counts holds the per-folder results for one credential.
type Counts struct {
	Inbox int
	Sent  int

	// SentFolder is the candidate name that matched, empty when none did.
	SentFolder string

	// Notes records per-folder failures and probe findings for the report.
	Notes []string
}

// Note joins the collected notes for a single report column.
func (c Counts) Note() string {
	return strings.Join(c.Notes, "; ")
}

// Counter counts messages in the inbox and sent folders of a session.
type Counter struct {
	sentFolders []string
	probeLatest bool
	log         logging.Logger
}

// New creates a Counter from the IMAP and check configuration.
func New(imapCfg model.IMAPConfig, checkCfg model.CheckConfig, log logging.Logger) *Counter {
	return &Counter{
		sentFolders: imapCfg.SentFolders,
		probeLatest: checkCfg.ProbeLatest,
		log:         log,
	}
}

// Count queries the inbox and sent-folder message counts. A folder that
// cannot be counted contributes a note and a zero count; the error return
// is non-nil only when every folder failed, which means the session itself
// is unusable.
func (c *Counter) Count(ctx context.Context, session auth.Session) (Counts, error) {
	var counts Counts
	var inboxErr, sentErr error

	counts.Inbox, inboxErr = session.MessageCount(InboxFolder)
	if inboxErr != nil {
		inboxErr = &CountError{Mailbox: InboxFolder, Err: inboxErr}
		counts.Notes = append(counts.Notes, "inbox count unavailable")
		c.log.Warn(ctx, "inbox count failed", "error", inboxErr)
	}

	counts.Sent, counts.SentFolder, sentErr = c.countSent(session)
	if sentErr != nil {
		counts.Notes = append(counts.Notes, "sent folder not found")
		c.log.Warn(ctx, "sent count failed", "error", sentErr)
	}

	if inboxErr != nil && sentErr != nil {
		return counts, fmt.Errorf("no folder could be counted: %w", inboxErr)
	}

	if c.probeLatest && inboxErr == nil && counts.Inbox > 0 {
		c.probe(ctx, session, &counts)
	}

	return counts, nil
}

// countSent tries each candidate sent-mail folder name in order; Gmail
// localizes the name per account, so the first countable one wins.
func (c *Counter) countSent(session auth.Session) (int, string, error) {
	var lastErr error
	for _, folder := range c.sentFolders {
		n, err := session.MessageCount(folder)
		if err == nil {
			return n, folder, nil
		}
		lastErr = &CountError{Mailbox: folder, Err: err}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no sent folder candidates configured")
	}
	return 0, "", lastErr
}

// probe fetches the newest inbox message header and records a last-activity
// note. Probe failures are logged and otherwise ignored.
func (c *Counter) probe(ctx context.Context, session auth.Session, counts *Counts) {
	act, err := session.LatestMessage(InboxFolder)
	if err != nil {
		c.log.Debug(ctx, "latest-message probe failed", "error", err)
		return
	}
	if act == nil {
		return
	}

	note := "latest inbox message"
	if act.From != "" {
		note += " from " + act.From
	}
	if !act.Date.IsZero() {
		note += " on " + act.Date.Format("2006-01-02")
	}
	counts.Notes = append(counts.Notes, note)
}
