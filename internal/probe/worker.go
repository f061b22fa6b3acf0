package probe

import (
	"context"
	"sync"

	"hprobe/internal/output"
	"hprobe/internal/parser"
)

// HostSource yields input hostnames one at a time. *bufio.Scanner and
// *parser.HostScanner both satisfy it.
type HostSource interface {
	Scan() bool
	Text() string
	Err() error
}

// ProcessHosts probes every host from hosts against every probe using a pool
// of concurrency workers, so at most concurrency requests are in flight.
//
// Hosts are read lazily: each host's targets are queued in probe order, the
// queue holds at most concurrency targets, and only one line is read ahead of
// the host being queued, so reading stalls while the workers are busy. Results are sent as soon as each
// request completes, in no particular order. The results channel is closed
// once the input is exhausted or ctx is done and every queued target has
// completed; the error channel then holds the input error, ctx.Err(), or nil.
func (p *Prober) ProcessHosts(ctx context.Context, hosts HostSource, probes []parser.Probe, concurrency int) (<-chan output.ProbeResult, <-chan error) {
	if concurrency < 1 {
		concurrency = 1
	}

	targets := make(chan parser.Target, concurrency)
	results := make(chan output.ProbeResult, concurrency)
	errc := make(chan error, 1)

	// Create worker pool
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go p.worker(ctx, targets, results, &wg)
	}

	// Feed targets to workers
	go func() {
		defer close(targets)
		errc <- feedTargets(ctx, hosts, probes, targets)
		close(errc)
	}()

	// Close results channel when all workers are done
	go func() {
		wg.Wait()
		close(results)
	}()

	return results, errc
}

// feedTargets expands each host into its targets and queues them. Lines are
// read on a separate goroutine so a read blocked on idle input never delays
// cancellation; that goroutine is abandoned if ctx is done mid-read.
func feedTargets(ctx context.Context, hosts HostSource, probes []parser.Probe, targets chan<- parser.Target) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for hosts.Scan() {
			select {
			case lines <- hosts.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- hosts.Err()
	}()

	for {
		var host string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return ctx.Err()
				}
			}
			host = line
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, target := range parser.Expand(host, probes) {
			select {
			case targets <- target:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// worker probes targets until the queue is closed. Queued targets are
// still attempted after cancellation so each one produces a result.
func (p *Prober) worker(ctx context.Context, targets <-chan parser.Target, results chan<- output.ProbeResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for target := range targets {
		results <- p.ProbeURL(ctx, target)
	}
}
