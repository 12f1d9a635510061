package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"heredity/internal/heredity"
)

// Summary is the JSON document emitted for a finished run.
type Summary struct {
	RunID      string                        `json:"run_id,omitempty"`
	Worlds     int64                         `json:"worlds"`
	Posteriors map[string]heredity.Posterior `json:"posteriors"`
}

// WriteText prints one block per individual in the given order, genes from
// two copies down to zero and the trait true before false, four decimals.
func WriteText(w io.Writer, order []string, posteriors map[string]heredity.Posterior) error {
	if w == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	bw := bufio.NewWriter(w)
	for _, id := range order {
		p, ok := posteriors[id]
		if !ok {
			return fmt.Errorf("no posterior for individual %s", id)
		}
		fmt.Fprintf(bw, "%s:\n", id)
		fmt.Fprintf(bw, "  Gene:\n")
		for g := len(heredity.GeneCounts) - 1; g >= 0; g-- {
			gene := heredity.GeneCounts[g]
			fmt.Fprintf(bw, "    %d: %.4f\n", int(gene), p.Gene.P(gene))
		}
		fmt.Fprintf(bw, "  Trait:\n")
		fmt.Fprintf(bw, "    True: %.4f\n", p.Trait.P(true))
		fmt.Fprintf(bw, "    False: %.4f\n", p.Trait.P(false))
	}
	return bw.Flush()
}

// WriteJSON encodes the summary with indentation.
func WriteJSON(w io.Writer, s Summary) error {
	if w == nil {
		return fmt.Errorf("writer cannot be nil")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
