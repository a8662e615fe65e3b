package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nhle/mailcheck/internal/model"
)

// csvHeader is the fixed export schema. Success and failure rows share it;
// inapplicable fields are left empty.
var csvHeader = []string{
	"email", "auth_type", "status",
	"inbox_count", "sent_count", "error_message", "timestamp",
}

// WriteCSV serializes results in input order: a header row followed by one
// row per result.
func WriteCSV(w io.Writer, results []model.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, r := range results {
		inbox, sent := "", ""
		if r.IsSuccess() {
			inbox = strconv.Itoa(r.InboxCount)
			sent = strconv.Itoa(r.SentCount)
		}
		row := []string{
			r.Email,
			string(r.AuthKind),
			string(r.Status),
			inbox,
			sent,
			r.ErrorMessage,
			r.Timestamp.Format(time.RFC3339Nano),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for %s: %w", r.Email, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file previously produced by WriteCSV. Positions are
// assigned from row order.
func ReadCSV(r io.Reader) ([]model.Result, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected CSV header with %d columns", len(header))
	}

	var results []model.Result
	for i := 0; ; i++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", i+1, err)
		}

		res := model.Result{
			Email:        row[0],
			AuthKind:     model.AuthKind(row[1]),
			Status:       model.ResultStatus(row[2]),
			ErrorMessage: row[5],
			Position:     i,
		}
		if row[3] != "" {
			if res.InboxCount, err = strconv.Atoi(row[3]); err != nil {
				return nil, fmt.Errorf("row %d: bad inbox count %q", i+1, row[3])
			}
		}
		if row[4] != "" {
			if res.SentCount, err = strconv.Atoi(row[4]); err != nil {
				return nil, fmt.Errorf("row %d: bad sent count %q", i+1, row[4])
			}
		}
		if res.Timestamp, err = time.Parse(time.RFC3339Nano, row[6]); err != nil {
			return nil, fmt.Errorf("row %d: bad timestamp %q", i+1, row[6])
		}

		results = append(results, res)
	}

	return results, nil
}
