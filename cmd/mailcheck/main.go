// mailcheck checks batches of Gmail credentials over IMAP and reports
// per-mailbox message counts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailcheck/internal/app"
	"github.com/nhle/mailcheck/internal/auth"
	"github.com/nhle/mailcheck/internal/count"
	"github.com/nhle/mailcheck/internal/history"
	"github.com/nhle/mailcheck/internal/logging"
	"github.com/nhle/mailcheck/internal/model"
	"github.com/nhle/mailcheck/internal/parse"
	"github.com/nhle/mailcheck/internal/report"
	"github.com/nhle/mailcheck/internal/run"
)

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func realMain() error {
	var (
		configPath  = flag.String("config", model.DefaultConfigPath(), "path to the config file")
		inputPath   = flag.String("input", "", "credentials file (email:password per line); enables headless mode")
		secretPaths = flag.String("secrets", "", "comma-separated OAuth2 client secret JSON files; enables headless mode")
		outputPath  = flag.String("output", "", "CSV output path for headless mode (default: stdout)")
		historyN    = flag.Int("history", 0, "list the N most recent archived runs and exit")
	)
	flag.Usage = usage
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if flag.NArg() > 0 && flag.Arg(0) == "authorize" {
		return runAuthorize(flag.Args()[1:])
	}

	if *historyN > 0 {
		return listHistory(cfg, *historyN)
	}

	log, closer, err := logging.NewRunLogger(cfg.ScratchDir)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer closer.Close()

	var archive *history.Store
	if cfg.History.Path != "" {
		archive, err = history.Open(cfg.History.Path)
		if err != nil {
			log.Warn(context.Background(), "run archive unavailable", "error", err)
		} else {
			defer archive.Close()
		}
	}

	tokens := auth.NewKeyringTokenStore()

	if *inputPath != "" || *secretPaths != "" {
		return runHeadless(cfg, log, tokens, archive, *inputPath, *secretPaths, *outputPath)
	}

	program := tea.NewProgram(
		app.New(cfg, *configPath, log, tokens, archive),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

// runAuthorize performs the one-time OAuth2 consent flow for a client
// secret file and stores the resulting token in the system keyring.
func runAuthorize(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mailcheck authorize <client_secret.json>")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading client secret: %w", err)
	}

	var input parse.Output
	parse.New().File(args[0], data, &input)
	if len(input.Failures) > 0 {
		return fmt.Errorf("invalid client secret: %s", input.Failures[0].Reason)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	email, err := auth.Authorize(ctx, input.Credentials[0].Secret, auth.NewKeyringTokenStore(), os.Stdout)
	if err != nil {
		return fmt.Errorf("authorizing: %w", err)
	}

	if email == "" {
		fmt.Println("Authorized. The account can now be checked without a browser.")
	} else {
		fmt.Printf("Authorized %s. The account can now be checked without a browser.\n", email)
	}
	return nil
}

// runHeadless executes a batch without the UI and writes CSV plus a
// summary line.
func runHeadless(
	cfg *model.AppConfig,
	log logging.Logger,
	tokens auth.TokenStore,
	archive *history.Store,
	inputPath, secretPaths, outputPath string,
) error {
	parser := parse.New()
	var input parse.Output

	if inputPath != "" {
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return fmt.Errorf("reading credentials file: %w", err)
		}
		parser.Text(string(data), &input)
	}
	for _, path := range splitPaths(secretPaths) {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading client secret %s: %w", path, err)
		}
		parser.File(path, data, &input)
	}

	if input.Total() == 0 {
		return fmt.Errorf("no credentials found in the given inputs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	counter := count.New(cfg.IMAP, cfg.Check, log)
	runner := run.New([]auth.Authenticator{
		auth.NewPasswordAuthenticator(cfg.IMAP, log),
		auth.NewOAuth2Authenticator(cfg.IMAP, tokens, log),
	}, counter, cfg.Check.Workers, log)

	startedAt := time.Now()
	results := runner.Run(ctx, input)

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := report.WriteCSV(out, results); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}

	fmt.Fprintln(os.Stderr, report.Summarize(results).String())

	if archive != nil {
		if _, err := archive.SaveRun(context.Background(), startedAt, results); err != nil {
			log.Warn(context.Background(), "archiving run failed", "error", err)
		}
	}
	return nil
}

// listHistory prints the most recent archived runs.
func listHistory(cfg *model.AppConfig, limit int) error {
	if cfg.History.Path == "" {
		return fmt.Errorf("run archiving is disabled; set history.path in the config file")
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("opening run archive: %w", err)
	}
	defer store.Close()

	runs, err := store.RecentRuns(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tTOTAL\tOK\tFAILED\tRUN ID")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Total, r.Succeeded, r.Failed, r.ID)
	}
	return w.Flush()
}

func splitPaths(s string) []string {
	if s == "" {
		return nil
	}
	var paths []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `mailcheck checks Gmail credentials over IMAP and reports mailbox counts.

Usage:
  mailcheck [flags]                       interactive UI
  mailcheck -input creds.txt [flags]      headless batch, CSV to stdout
  mailcheck authorize <client_secret.json>  one-time OAuth2 consent flow

Flags:
`)
	flag.PrintDefaults()
}
