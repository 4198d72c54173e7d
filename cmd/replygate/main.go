package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshsymonds/replygate/internal/approve"
	"github.com/joshsymonds/replygate/internal/dispatch"
	"github.com/joshsymonds/replygate/internal/draft"
	"github.com/joshsymonds/replygate/internal/gmail"
	"github.com/joshsymonds/replygate/internal/metrics"
	"github.com/joshsymonds/replygate/internal/quota"
	"github.com/joshsymonds/replygate/internal/runtime"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		runtime.DefaultLogger().Error("replygate configuration invalid", "error", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("replygate failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() (appConfig, error) {
	defaults := defaultConfig()

	configPath := flag.String("config", "replygate.yaml", "optional YAML config file")
	authDir := flag.String("auth-dir", defaults.AuthDir, "gmailctl auth directory")
	credentials := flag.String("credentials", "", "OAuth client secret file (bypasses gmailctl auth)")
	token := flag.String("token", "token.json", "OAuth token cache, used with -credentials")
	query := flag.String("query", defaults.Query, "Gmail search selecting candidate messages")
	pageSize := flag.Int("page-size", defaults.PageSize, "list page size (<=500)")
	maxMessages := flag.Int("max-messages", 0, "cap on messages processed this run (0 = all)")
	redactionPasses := flag.Int("redaction-passes", defaults.RedactionPasses, "scan/redact passes before failing closed")
	quotaUnits := flag.Int("quota-units", defaults.QuotaUnits, "provider quota units per window")
	quotaWindow := flag.Duration("quota-window", defaults.QuotaWindow, "quota replenish window")
	quotaMaxWait := flag.Duration("quota-max-wait", 0, "max wait for quota replenish (0 = unbounded)")
	approvalTimeout := flag.Duration("approval-timeout", 0, "per-reply approval deadline, resolves to discard (0 = wait forever)")
	maxEditPasses := flag.Int("max-edit-passes", defaults.MaxEditPasses, "edit rounds before a blocked reply is discarded")
	drafter := flag.String("drafter", defaults.Drafter, "reply drafter: anthropic or template")
	templateBody := flag.String("template-body", "", "body for the template drafter")
	model := flag.String("model", "", "model override for the anthropic drafter")
	metricsAddr := flag.String("metrics-addr", "", "serve prometheus metrics on this address (empty = off)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return appConfig{}, err
	}

	// Flags set explicitly on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "auth-dir":
			cfg.AuthDir = *authDir
		case "credentials":
			cfg.Credentials = *credentials
		case "token":
			cfg.Token = *token
		case "query":
			cfg.Query = *query
		case "page-size":
			cfg.PageSize = *pageSize
		case "max-messages":
			cfg.MaxMessages = *maxMessages
		case "redaction-passes":
			cfg.RedactionPasses = *redactionPasses
		case "quota-units":
			cfg.QuotaUnits = *quotaUnits
		case "quota-window":
			cfg.QuotaWindow = *quotaWindow
		case "quota-max-wait":
			cfg.QuotaMaxWait = *quotaMaxWait
		case "approval-timeout":
			cfg.ApprovalTimeout = *approvalTimeout
		case "max-edit-passes":
			cfg.MaxEditPasses = *maxEditPasses
		case "drafter":
			cfg.Drafter = *drafter
		case "template-body":
			cfg.TemplateBody = *templateBody
		case "model":
			cfg.Model = *model
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		}
	})

	if cfg.Drafter != "anthropic" && cfg.Drafter != "template" {
		return appConfig{}, fmt.Errorf("unknown drafter %q", cfg.Drafter)
	}
	return cfg, nil
}

func run(cfg appConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.DefaultLogger()

	transport, err := newTransport(ctx, cfg)
	if err != nil {
		return err
	}

	drafter, err := newDrafter(cfg)
	if err != nil {
		return err
	}

	budget := quota.NewBudget(cfg.QuotaUnits, cfg.QuotaWindow)
	budget.MaxWait = cfg.QuotaMaxWait

	queue := approve.NewQueue()
	console := &approve.Console{Queue: queue, Out: os.Stdout, Logger: logger}
	consoleCtx, stopConsole := context.WithCancel(ctx)
	defer stopConsole()
	go func() {
		if consoleErr := console.Run(consoleCtx); consoleErr != nil {
			logger.Error("approval console stopped", "error", consoleErr)
		}
	}()

	gate := &approve.Gate{
		Operator:      queue,
		Timeout:       cfg.ApprovalTimeout,
		MaxEditPasses: cfg.MaxEditPasses,
		Logger:        logger,
	}

	svc := dispatch.NewService(transport, drafter, gate, budget, logger)
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		svc.Metrics = metrics.NewRun(reg)
		go func() {
			if serveErr := metrics.Serve(ctx, cfg.MetricsAddr, reg); serveErr != nil {
				logger.Error("metrics server stopped", "error", serveErr)
			}
		}()
	}

	runID := uuid.NewString()
	logger.InfoContext(ctx, "starting triage run", "run_id", runID, "query", cfg.Query)

	stats, results, err := svc.Run(ctx, dispatch.Spec{
		Query:           cfg.Query,
		PageSize:        cfg.PageSize,
		MaxMessages:     cfg.MaxMessages,
		RedactionPasses: cfg.RedactionPasses,
	})
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	printSummary(os.Stdout, runID, stats, results)
	return nil
}

func newTransport(ctx context.Context, cfg appConfig) (gmail.Transport, error) {
	if cfg.Credentials != "" {
		return runtime.NewTransportFromToken(ctx, cfg.Credentials, cfg.Token)
	}
	return runtime.NewTransport(ctx, cfg.AuthDir)
}

func newDrafter(cfg appConfig) (draft.Drafter, error) {
	switch cfg.Drafter {
	case "template":
		return draft.Template{Body: cfg.TemplateBody}, nil
	default:
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set; use -drafter=template for offline runs")
		}
		d := draft.NewAnthropic(apiKey)
		if cfg.Model != "" {
			d.Model = cfg.Model
		}
		return d, nil
	}
}

func printSummary(w *os.File, runID string, stats dispatch.Stats, results []dispatch.Result) {
	var b strings.Builder
	fmt.Fprintf(&b, "\nreplygate run %s — %d fetched, %d filtered out, %d drafted\n",
		runID, stats.Fetched, stats.FilteredOut, stats.Drafted)
	fmt.Fprintf(&b, "  sent %d, draft-saved %d, discarded %d, failed %d (scan-blocked %d)\n",
		stats.Sent, stats.DraftSaved, stats.Discarded, stats.Failed, stats.ScanBlocked)
	for _, res := range results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(&b, "  %-20s %-12s %v\n", res.MessageID, res.Outcome, res.Err)
		case res.Outcome == dispatch.OutcomeSkipped:
			fmt.Fprintf(&b, "  %-20s %-12s %s\n", res.MessageID, res.Outcome, res.FilterReason)
		case res.Attempts > 1:
			fmt.Fprintf(&b, "  %-20s %-12s attempts=%d\n", res.MessageID, res.Outcome, res.Attempts)
		default:
			fmt.Fprintf(&b, "  %-20s %s\n", res.MessageID, res.Outcome)
		}
	}
	fmt.Fprint(w, b.String())
}
