// Package run schedules credential checks and streams progress to the UI.
//
// Two explicit scheduling policies exist, selected by credential kind:
// app-password checks fan out over a bounded worker pool, since each opens
// its own independent TLS connection; OAuth2 checks run strictly one at a
// time so token refreshes for one client can never interleave with another.
package run

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/mailcheck/internal/auth"
	"github.com/nhle/mailcheck/internal/count"
	"github.com/nhle/mailcheck/internal/logging"
	"github.com/nhle/mailcheck/internal/model"
	"github.com/nhle/mailcheck/internal/parse"
	"github.com/nhle/mailcheck/internal/report"
)

// ProgressMsg is a tea.Msg sent after each result is produced.
type ProgressMsg struct {
	Result    model.Result
	Completed int
	Total     int
}

// DoneMsg is a tea.Msg sent once every input entry has a result.
type DoneMsg struct {
	Results []model.Result
	Summary report.Summary
}

// Runner drives one batch of credential checks.
type Runner struct {
	authenticators map[model.AuthKind]auth.Authenticator
	counter        *count.Counter
	workers        int
	log            logging.Logger

	events chan tea.Msg
}

// New creates a Runner. workers bounds concurrent app-password checks.
func New(authenticators []auth.Authenticator, counter *count.Counter, workers int, log logging.Logger) *Runner {
	byKind := make(map[model.AuthKind]auth.Authenticator, len(authenticators))
	for _, a := range authenticators {
		byKind[a.Kind()] = a
	}
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		authenticators: byKind,
		counter:        counter,
		workers:        workers,
		log:            log,
		events:         make(chan tea.Msg, 16),
	}
}

// Start launches the batch in the background and returns a command that
// delivers the first event. The UI re-subscribes with WaitForEvent after
// each message until DoneMsg arrives.
func (r *Runner) Start(ctx context.Context, input parse.Output) tea.Cmd {
	go func() {
		results := r.Run(ctx, input)
		r.events <- DoneMsg{Results: results, Summary: report.Summarize(results)}
	}()
	return r.WaitForEvent()
}

// WaitForEvent returns a command that blocks until the next progress or
// done event.
func (r *Runner) WaitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-r.events
	}
}

// Run processes the whole batch synchronously and returns the results in
// input order. Exactly one result exists per credential plus one per
// parse-level failure; no single failure aborts the batch. After ctx is
// canceled no new credential is scheduled, but in-flight network calls are
// left to finish or time out on their own.
func (r *Runner) Run(ctx context.Context, input parse.Output) []model.Result {
	agg := report.NewAggregator()
	total := input.Total()

	for _, f := range input.Failures {
		res := model.FailureResult(f.Raw, f.Kind, "parse error: "+f.Reason, 0)
		res.Position = f.Position
		r.record(agg, res, total)
	}

	var passwords, oauths []*model.Credential
	for _, cred := range input.Credentials {
		switch cred.Kind {
		case model.AuthOAuth2:
			oauths = append(oauths, cred)
		default:
			passwords = append(passwords, cred)
		}
	}

	var wg sync.WaitGroup

	// Policy 1: bounded concurrent fan-out for independent password logins.
	wg.Add(1)
	go func() {
		defer wg.Done()
		g := new(errgroup.Group)
		g.SetLimit(r.workers)
		for _, cred := range passwords {
			cred := cred
			if ctx.Err() != nil {
				r.record(agg, canceledResult(cred), total)
				continue
			}
			g.Go(func() error {
				r.record(agg, r.processOne(ctx, cred), total)
				return nil
			})
		}
		_ = g.Wait()
	}()

	// Policy 2: strict serialization for OAuth2 credentials.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, cred := range oauths {
			if ctx.Err() != nil {
				r.record(agg, canceledResult(cred), total)
				continue
			}
			r.record(agg, r.processOne(ctx, cred), total)
		}
	}()

	wg.Wait()
	return agg.Results()
}

// record appends a result and notifies any subscribed UI.
func (r *Runner) record(agg *report.Aggregator, res model.Result, total int) {
	agg.Append(res)
	if r.events != nil {
		select {
		case r.events <- ProgressMsg{Result: res, Completed: agg.Len(), Total: total}:
		default:
			// UI is not draining; progress is best-effort.
		}
	}
}

// processOne runs the authenticate-then-count flow for one credential and
// always returns a result, success or failure.
func (r *Runner) processOne(ctx context.Context, cred *model.Credential) model.Result {
	start := time.Now()

	authenticator, ok := r.authenticators[cred.Kind]
	if !ok {
		cred.SetFailed()
		res := model.FailureResult(cred.DisplayID(), cred.Kind, "unsupported auth kind", time.Since(start))
		res.Position = cred.Position
		return res
	}

	session, err := authenticator.Authenticate(ctx, cred)
	if err != nil {
		r.log.Info(ctx, "credential failed", "id", cred.DisplayID(), "error", err)
		res := model.FailureResult(cred.DisplayID(), cred.Kind, err.Error(), time.Since(start))
		res.Position = cred.Position
		return res
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			r.log.Debug(ctx, "closing session", "id", cred.DisplayID(), "error", cerr)
		}
	}()

	counts, err := r.counter.Count(ctx, session)
	if err != nil {
		res := model.FailureResult(cred.Email, cred.Kind, err.Error(), time.Since(start))
		res.Position = cred.Position
		return res
	}

	r.log.Info(ctx, "credential checked",
		"email", cred.Email, "inbox", counts.Inbox, "sent", counts.Sent)

	res := model.SuccessResult(cred.Email, cred.Kind, counts.Inbox, counts.Sent, time.Since(start))
	res.Note = counts.Note()
	res.Position = cred.Position
	return res
}

// canceledResult keeps the one-result-per-credential contract intact for
// credentials the cancel signal prevented from being scheduled.
func canceledResult(cred *model.Credential) model.Result {
	cred.SetFailed()
	res := model.FailureResult(cred.DisplayID(), cred.Kind, "canceled before processing", 0)
	res.Position = cred.Position
	return res
}
