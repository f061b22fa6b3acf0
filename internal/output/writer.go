package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// Writer reports probe results. Successful probes go to out and failed
// probes to errOut, either as plain lines or as JSON objects.
type Writer struct {
	out      io.Writer
	errOut   io.Writer
	jsonMode bool
	success  int
	failed   int
}

// NewWriter creates a Writer. Writer is not safe for concurrent use; results
// are expected to be drained by a single loop.
func NewWriter(out, errOut io.Writer, jsonMode bool) *Writer {
	return &Writer{
		out:      out,
		errOut:   errOut,
		jsonMode: jsonMode,
	}
}

// Write reports a single result
func (w *Writer) Write(result ProbeResult) error {
	dst := w.out
	if result.Failed() {
		dst = w.errOut
		w.failed++
	} else {
		w.success++
	}

	if w.jsonMode {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		_, err = fmt.Fprintln(dst, string(data))
		return err
	}

	if result.Failed() {
		_, err := fmt.Fprintf(dst, "%s: %s\n", result.URL, result.Error)
		return err
	}
	_, err := fmt.Fprintln(dst, result.URL)
	return err
}

// Counts returns the number of successful and failed results written so far
func (w *Writer) Counts() (success, failed int) {
	return w.success, w.failed
}

// Drain writes every result from results until the channel is closed,
// updating bar as it goes. A write error stops reporting but the channel is
// still drained so the producers can finish.
func Drain(results <-chan ProbeResult, w *Writer, bar *StatusBar) error {
	var writeErr error
	for result := range results {
		if writeErr != nil {
			continue
		}
		if err := w.Write(result); err != nil {
			writeErr = err
			continue
		}
		success, failed := w.Counts()
		bar.Update(success+failed, failed, result.URL)
	}
	return writeErr
}
