package engine

import (
	"fmt"
	"io"
	"time"

	"github.com/uxr-project/uxr-go/pkg/mapping"
)

// Dump writes the engine's diagnostic state to w: mode, current snapshot,
// subscribers and the active mapping table.
func (e *Engine) Dump(w io.Writer) error {
	e.mu.Lock()
	mode := e.mode
	fallback := e.fallback
	current := e.current
	table := e.activeTableLocked()
	entries := e.registry.Entries()
	e.mu.Unlock()

	if _, err := fmt.Fprintf(w, "mode: %s\nfallback: %t\nrestrictions: %s\nsubscribers: %d\n",
		mode, fallback, current, len(entries)); err != nil {
		return err
	}
	for _, entry := range entries {
		line := fmt.Sprintf("  %s (since %s)", entry.ID(), entry.RegisteredAt().Format(time.RFC3339))
		if entry.LinkErr() != nil {
			line += " [no liveness link]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return mapping.Dump(w, table)
}
