package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/batchrun/internal/config"
	"github.com/rshade/batchrun/internal/engine"
	"github.com/rshade/batchrun/internal/engine/batch"
	"github.com/rshade/batchrun/internal/engine/cache"
	"github.com/rshade/batchrun/internal/ingest"
	"github.com/rshade/batchrun/internal/logging"
	"github.com/rshade/batchrun/internal/metrics"
	"github.com/rshade/batchrun/internal/remote"
	"github.com/rshade/batchrun/internal/retry"
	"github.com/rshade/batchrun/internal/tui"
)

// Processor names reported in JSON metadata.
const (
	processorEcho = "echo"
	processorHTTP = "http"
)

// runFlags holds the flags of the run command.
type runFlags struct {
	inputFlags

	endpoint        string
	headers         []string
	chunkSize       int
	delay           time.Duration
	maxRetries      int
	timeout         time.Duration
	output          string
	metricsAddr     string
	metricsTextfile string
	failOnError     bool
	noTUI           bool
	useCache        bool
	cacheTTL        time.Duration
}

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every row of an input file",
		Long: `Parses the input file and processes its rows in chunks. Rows in a chunk
run concurrently; the next chunk starts only after every row of the current
one has finished, followed by a pause. Failed rows are retried with
exponential backoff when the failure is transient.

Without --endpoint rows are echoed back unchanged, which is useful to check
parsing and pacing. Press ctrl+c to stop after the chunk in progress.`,
		Example: `  # Dry run
  batchrun run --input users.csv

  # Post rows to an API and write results as JSON
  batchrun run --input users.csv --endpoint https://api.example.com/users --output json > results.json

  # Expose Prometheus metrics while running
  batchrun run --input users.csv --endpoint http://localhost:8080/items --metrics-addr :9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, &flags)
		},
	}

	flags.register(cmd)
	f := cmd.Flags()
	f.StringVar(&flags.endpoint, "endpoint", "", "HTTP endpoint receiving each row as a JSON POST")
	f.StringArrayVar(&flags.headers, "header", nil, `extra request header "Name: value" (repeatable)`)
	f.IntVar(&flags.chunkSize, "chunk-size", batch.DefaultChunkSize, "rows processed concurrently per chunk (1-1000)")
	f.DurationVar(&flags.delay, "delay", batch.DefaultDelayBetweenChunks, "pause between chunks")
	f.IntVar(&flags.maxRetries, "max-retries", batch.DefaultMaxRetries, "retries per row after the first attempt")
	f.DurationVar(&flags.timeout, "timeout", remote.DefaultTimeout, "per-request timeout for --endpoint")
	f.StringVarP(&flags.output, "output", "o", "", "output format: table, json, ndjson or csv (default from config)")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	f.StringVar(&flags.metricsTextfile, "metrics-textfile", "", "write final metrics to this file for node_exporter")
	f.BoolVar(&flags.failOnError, "fail-on-error", false, "exit with code 2 when any row fails or the run is cancelled")
	f.BoolVar(&flags.noTUI, "no-tui", false, "disable the interactive progress display")
	f.BoolVar(&flags.useCache, "cache", false, "skip rows that already succeeded against the same endpoint")
	f.DurationVar(&flags.cacheTTL, "cache-ttl", cache.DefaultTTL, "how long cached results stay valid")

	return cmd
}

// effectiveConfig overlays explicitly set flags on a copy of the global config.
func effectiveConfig(cmd *cobra.Command, flags *runFlags) (*config.Config, error) {
	cfg := *config.GetGlobalConfig()
	f := cmd.Flags()

	if f.Changed("chunk-size") {
		cfg.Batch.ChunkSize = flags.chunkSize
	}
	if f.Changed("delay") {
		cfg.Batch.DelayBetweenChunks = flags.delay
	}
	if f.Changed("max-retries") {
		cfg.Batch.MaxRetries = flags.maxRetries
	}
	if f.Changed("endpoint") {
		cfg.Remote.Endpoint = flags.endpoint
	}
	if f.Changed("timeout") {
		cfg.Remote.Timeout = flags.timeout
	}
	if f.Changed("header") {
		headers := make(map[string]string, len(cfg.Remote.Headers)+len(flags.headers))
		for k, v := range cfg.Remote.Headers {
			headers[k] = v
		}
		for _, h := range flags.headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("invalid header %q: expected \"Name: value\"", h)
			}
			headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
		cfg.Remote.Headers = headers
	}
	if f.Changed("output") {
		cfg.Output.DefaultFormat = flags.output
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Addr = flags.metricsAddr
	}
	if f.Changed("metrics-textfile") {
		cfg.Metrics.Textfile = flags.metricsTextfile
	}
	if f.Changed("cache") {
		cfg.Cache.Enabled = flags.useCache
	}
	if f.Changed("cache-ttl") {
		cfg.Cache.TTL = flags.cacheTTL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runBatch(cmd *cobra.Command, flags *runFlags) error {
	cfg, err := effectiveConfig(cmd, flags)
	if err != nil {
		return err
	}

	table, err := flags.load()
	if err != nil {
		return err
	}
	if len(flags.required) > 0 {
		if res := table.Validate(flags.required); !res.Valid {
			cmd.PrintErrf("%s: %d validation error(s)\n", flags.input, res.TotalErrors)
			printValidation(cmd, res)
			return &ExitError{ExitCode: 1, Reason: "input validation failed"}
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collector := metrics.NewCollector(cfg.Metrics.Namespace)
	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, collector, logging.ComponentLogger(*logging.FromContext(ctx), "metrics"))
		if _, err = srv.Start(); err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		defer func() {
			if shutdownErr := srv.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
				logger.Warn().Err(shutdownErr).Msg("metrics server shutdown")
			}
		}()
	}

	debug, _ := cmd.Flags().GetBool("debug")
	job := runJob{
		cmd:       cmd,
		cfg:       cfg,
		table:     table,
		input:     flags.input,
		collector: collector,
		cancel:    cancel,
		useTUI:    !flags.noTUI && !debug && isTerminal(os.Stderr),
	}

	var summary batch.Summary
	if cfg.Remote.Endpoint != "" {
		proc, procErr := remote.NewHTTPProcessor(cfg.Remote.Endpoint,
			remote.WithTimeout(cfg.Remote.Timeout),
			remote.WithHeaders(cfg.Remote.Headers),
		)
		if procErr != nil {
			return procErr
		}
		var itemProc batch.ItemProcessor[ingest.Record, remote.Response] = proc
		if cfg.Cache.Enabled {
			cached, cacheErr := openResponseCache(cfg, proc)
			if cacheErr != nil {
				return cacheErr
			}
			defer func() {
				logger.Info().
					Ctx(ctx).
					Int64("hits", cached.Hits()).
					Int64("misses", cached.Misses()).
					Msg("response cache")
			}()
			itemProc = cached
		}
		summary, err = executeRun[remote.Response](ctx, job, processorHTTP, itemProc)
	} else {
		summary, err = executeRun[ingest.Record](ctx, job, processorEcho, remote.EchoProcessor{})
	}
	if err != nil {
		return err
	}

	if flags.failOnError && (summary.Failed > 0 || summary.Aborted) {
		return &ExitError{ExitCode: ExitCodeRunFailures, Reason: summary.String()}
	}
	return nil
}

// openResponseCache wraps proc with the on-disk cache keyed by endpoint and
// row contents.
func openResponseCache(
	cfg *config.Config,
	proc *remote.HTTPProcessor,
) (*cache.Processor[ingest.Record, remote.Response], error) {
	dir, err := cfg.Cache.CacheDir()
	if err != nil {
		return nil, err
	}
	store, err := cache.Open(dir, cfg.Cache.TTL)
	if err != nil {
		return nil, err
	}
	key := func(rec ingest.Record) (string, error) {
		return cache.RecordKey(proc.Endpoint(), rec)
	}
	return cache.Wrap[ingest.Record, remote.Response](store, key, proc), nil
}

// runJob bundles what executeRun needs independent of the output type.
type runJob struct {
	cmd       *cobra.Command
	cfg       *config.Config
	table     *ingest.Table
	input     string
	collector *metrics.Collector
	cancel    context.CancelFunc
	useTUI    bool
}

func executeRun[Out any](
	ctx context.Context,
	job runJob,
	processorName string,
	proc batch.ItemProcessor[ingest.Record, Out],
) (batch.Summary, error) {
	opts := config.ToBatchOptions[ingest.Record, Out](job.cfg)
	log := logging.ComponentLogger(*logging.FromContext(ctx), "cli")

	// send is replaced by the progress display's Send once it exists.
	send := func(tea.Msg) {}
	opts.OnItemComplete = metrics.ItemCallback[ingest.Record, Out](job.collector,
		func(_ batch.ItemResult[ingest.Record, Out], snap batch.ProgressSnapshot) {
			send(tui.ProgressMsg{Snapshot: snap})
		})
	opts.OnChunkComplete = func(chunk int, snap batch.ProgressSnapshot) {
		send(tui.ProgressMsg{Snapshot: snap})
		log.Debug().
			Int("chunk", chunk+1).
			Int("total_chunks", snap.TotalChunks).
			Float64("percent", snap.Percentage).
			Msg("chunk finished")
	}

	runner, err := batch.NewRunner(opts)
	if err != nil {
		return batch.Summary{}, err
	}

	var program *tea.Program
	if job.useTUI {
		model := tui.NewProgressModel(
			fmt.Sprintf("Processing %s", filepath.Base(job.input)),
			len(job.table.Rows), len(runner.CalculateChunks(len(job.table.Rows))), job.cancel,
		)
		program = tea.NewProgram(model, tea.WithOutput(job.cmd.ErrOrStderr()))
		send = program.Send

		// Console logs would tear the progress display apart.
		if job.cfg.Logging.File == "" {
			quiet := logging.FromContext(ctx).Level(zerolog.WarnLevel)
			ctx = quiet.WithContext(ctx)
		}
	}

	instrumented := metrics.Instrument[ingest.Record, Out](job.collector, proc)

	var res *batch.Result[ingest.Record, Out]
	if program == nil {
		res, err = runner.Run(ctx, job.table.Rows, instrumented)
	} else {
		done := make(chan struct{})
		go func() {
			defer close(done)
			res, err = runner.Run(ctx, job.table.Rows, instrumented)
			if err == nil {
				send(tui.DoneMsg{Summary: res.Summary})
			} else {
				program.Quit()
			}
		}()
		if _, tuiErr := program.Run(); tuiErr != nil {
			log.Warn().Err(tuiErr).Msg("progress display stopped")
		}
		<-done
	}
	if err != nil {
		return batch.Summary{}, err
	}

	for _, failed := range res.Failures() {
		log.Warn().
			Err(failed.Err).
			Int("index", failed.Index).
			Int("attempts", failed.Attempts).
			Str("kind", retry.KindOf(failed.Err).String()).
			Msg("item failed")
	}

	job.collector.ObserveRun(res.Summary)
	if job.cfg.Metrics.Textfile != "" {
		if err = job.collector.WriteTextfile(job.cfg.Metrics.Textfile); err != nil {
			return res.Summary, fmt.Errorf("writing metrics textfile: %w", err)
		}
	}

	meta := engine.Metadata{Input: job.input, Processor: processorName}
	format := job.cfg.Output.DefaultFormat
	if err = engine.Render(job.cmd.OutOrStdout(), format, job.table.Header, res, meta); err != nil {
		return res.Summary, err
	}

	if job.useTUI {
		_, _ = fmt.Fprintln(job.cmd.ErrOrStderr(), tui.RenderSummary(res.Summary))
	} else if format != engine.FormatTable {
		_, _ = fmt.Fprintln(job.cmd.ErrOrStderr(), res.Summary.String())
	}
	return res.Summary, nil
}
