package commands

import (
	"fmt"
	"io"

	"github.com/uxr-project/uxr-go/pkg/log"
)

// RunFilter copies the events of path matching opts into a new log file
// and reports how many were written.
func RunFilter(path, output string, opts FilterOptions, w io.Writer) error {
	filter, err := opts.Build()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return fmt.Errorf("failed to create output logger: %w", err)
	}

	for event, err := range reader.Events() {
		if err != nil {
			logger.Close()
			return fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
	}

	if err := logger.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	if _, failed := logger.Stats(); failed > 0 {
		return fmt.Errorf("failed to write %d events to %s", failed, output)
	}

	read, matched := reader.Counts()
	fmt.Fprintf(w, "Filtered %d events to %s (%d read)\n", matched, output, read)
	return nil
}
