package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hprobe/internal/config"
	"hprobe/internal/output"
	"hprobe/internal/parser"
	"hprobe/internal/probe"
	"hprobe/pkg/version"
)

func main() {
	// Parse configuration
	cfg, err := config.ParseFlags()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			config.Usage(os.Stdout)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cfg.Close() // Clean up debug log file

	if cfg.Version {
		fmt.Println(version.GetVersion())
		return
	}

	// Handle interrupt signals for graceful shutdown
	ctx, cancel := shutdownOnSignal(context.Background(), cfg.Logger, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Get input reader
	var inputReader io.Reader = os.Stdin
	if cfg.InputFile != "" {
		file, err := os.Open(cfg.InputFile)
		if err != nil {
			cfg.Logger.Error("failed to open input file", "file", cfg.InputFile, "error", err)
			os.Exit(1)
		}
		defer file.Close()
		inputReader = file
	}

	// Get output writer
	var outputWriter io.Writer = os.Stdout
	if cfg.OutputFile != "" {
		file, err := os.Create(cfg.OutputFile)
		if err != nil {
			cfg.Logger.Error("failed to create output file", "file", cfg.OutputFile, "error", err)
			os.Exit(1)
		}
		defer file.Close()
		outputWriter = file
	}

	bar := output.NewStatusBar(os.Stderr, !cfg.Silent)
	if err := run(ctx, cfg, inputReader, outputWriter, os.Stderr, bar); err != nil {
		cfg.Logger.Error("run failed", "error", err)
		cfg.Close()
		os.Exit(1)
	}
}

// shutdownOnSignal returns a context cancelled by the first of sigs. The
// handler is removed after that signal so a second one terminates the
// process.
func shutdownOnSignal(parent context.Context, logger *slog.Logger, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sigs...)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			logger.Info("shutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// run probes every host read from in and reports the results. Failed probes
// do not fail the run; an unusable client, an input read error or an output
// write error does.
func run(ctx context.Context, cfg *config.Config, in io.Reader, out, errOut io.Writer, bar *output.StatusBar) error {
	prober, err := probe.NewProber(cfg)
	if err != nil {
		return err
	}
	defer prober.Close() // Clean up HTTP clients and transports

	probes := make([]string, len(cfg.ProbeSet))
	for i, p := range cfg.ProbeSet {
		probes[i] = p.String()
	}
	cfg.Logger.Info("probe set resolved", "probes", probes, "concurrency", cfg.Concurrency)
	if len(cfg.ProbeSet) == 0 {
		cfg.Logger.Warn("no probes to run, input will be read but nothing is probed")
	}

	hosts := parser.NewHostScanner(in)
	results, errc := prober.ProcessHosts(ctx, hosts, cfg.ProbeSet, cfg.Concurrency)

	w := output.NewWriter(out, errOut, cfg.JSON)
	writeErr := output.Drain(results, w, bar)
	bar.Close()
	inputErr := <-errc

	// The reader goroutine may still be blocked after cancellation
	if inputErr == nil && hosts.Skipped() > 0 {
		cfg.Logger.Warn("skipped lines that are not valid UTF-8", "count", hosts.Skipped())
	}

	success, failed := w.Counts()
	cfg.Logger.Info("probing completed",
		"total", success+failed,
		"success", success,
		"errors", failed,
	)

	if writeErr != nil {
		return fmt.Errorf("failed to write results: %w", writeErr)
	}
	if inputErr != nil && !errors.Is(inputErr, context.Canceled) {
		return fmt.Errorf("failed to read input: %w", inputErr)
	}
	return nil
}
