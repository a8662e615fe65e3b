// Package report accumulates per-credential results and renders them as a
// table, CSV, or a plain-text summary.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/nhle/mailcheck/internal/model"
)

// Aggregator collects results as they arrive. Appends are safe under
// concurrent writers; reads return copies restored to input order.
type Aggregator struct {
	mu      sync.Mutex
	results []model.Result
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Append records one result. Arrival order does not matter; views sort by
// input position.
func (a *Aggregator) Append(r model.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, r)
}

// Len returns the number of results collected so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// Results returns a copy of the collected results in input order.
func (a *Aggregator) Results() []model.Result {
	a.mu.Lock()
	out := make([]model.Result, len(a.results))
	copy(out, a.results)
	a.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}

// Summary aggregates totals across one processing run.
type Summary struct {
	Total      int
	Succeeded  int
	Failed     int
	TotalInbox int
	TotalSent  int
}

// Summarize computes run totals from an ordered result list.
func Summarize(results []model.Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.IsSuccess() {
			s.Succeeded++
			s.TotalInbox += r.InboxCount
			s.TotalSent += r.SentCount
		} else {
			s.Failed++
		}
	}
	return s
}

// SuccessRate returns the fraction of successful checks in percent.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

// String renders the plain-text summary.
func (s Summary) String() string {
	return fmt.Sprintf(
		"Checked %d credential(s): %d succeeded, %d failed (%.1f%% success)\n"+
			"Totals across successful accounts: %d inbox, %d sent, %d overall\n",
		s.Total, s.Succeeded, s.Failed, s.SuccessRate(),
		s.TotalInbox, s.TotalSent, s.TotalInbox+s.TotalSent,
	)
}

// TableHeader returns the column titles for the results table view.
func TableHeader() []string {
	return []string{"Email", "Auth", "Status", "Inbox", "Sent", "Details"}
}

// TableRows renders results as display rows matching TableHeader.
func TableRows(results []model.Result) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		detail := r.Note
		inbox, sent := "", ""
		if r.IsSuccess() {
			inbox = strconv.Itoa(r.InboxCount)
			sent = strconv.Itoa(r.SentCount)
		} else {
			detail = r.ErrorMessage
		}
		rows = append(rows, []string{
			r.Email,
			string(r.AuthKind),
			string(r.Status),
			inbox,
			sent,
			detail,
		})
	}
	return rows
}
