package mapping

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Dump writes a human-readable rendering of table to w.
// A nil table is rendered as absent.
func Dump(w io.Writer, table Table) error {
	switch t := table.(type) {
	case nil:
		_, err := fmt.Fprintln(w, "mapping: none loaded")
		return err
	case DefaultTable:
		_, err := fmt.Fprintln(w, "mapping: built-in defaults (PARKED=UNRESTRICTED, other=FULLY_RESTRICTED)")
		return err
	case *RuleTable:
		if t == nil {
			_, err := fmt.Fprintln(w, "mapping: none loaded")
			return err
		}
		return dumpRules(w, t)
	default:
		_, err := fmt.Fprintf(w, "mapping: %T (opaque)\n", table)
		return err
	}
}

func dumpRules(w io.Writer, t *RuleTable) error {
	if _, err := fmt.Fprintf(w, "mapping: %d rules\n", t.Len()); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  #\tSTATE\tSPEED\tRESTRICTIONS")
	for i, r := range t.rules {
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", i, r.State, r.Speed, r.Restrictions)
	}
	return tw.Flush()
}
