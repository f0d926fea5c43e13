package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/webpulse/gapctl/internal/cache"
	"github.com/webpulse/gapctl/internal/google/merchant"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputRaw pretty-prints an upstream JSON document without reshaping it.
func outputRaw(raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("formatting response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(os.Stdout)
	return err
}

func printFeedSummaryTable(s *merchant.FeedSummary) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("Total Products:\t%d\n", s.TotalProducts)
	tw.writef("Approved:\t%d\n", s.Approved)
	tw.writef("Disapproved:\t%d\n", s.Disapproved)
	tw.writef("Pending:\t%d\n", s.Pending)
	tw.writef("Issues:\t%d\n", s.IssueCount)
	return tw.finish()
}

func printStatusesTable(statuses []merchant.ProductStatus) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("PRODUCT\tTITLE\tSTATE\tISSUES\n")
	for i := range statuses {
		tw.writef("%s\t%s\t%s\t%d\n",
			statuses[i].ProductID,
			truncate(statuses[i].Title, 40),
			statuses[i].Classify(),
			len(statuses[i].ItemLevelIssues),
		)
	}
	return tw.finish()
}

func printCacheStatsTable(stats map[string]cache.Stats) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("NAMESPACE\tHITS\tMISSES\tSIZE\n")
	for _, name := range []string{"analytics", "searchconsole", "merchant"} {
		s, ok := stats[name]
		if !ok {
			continue
		}
		tw.writef("%s\t%d\t%d\t%d\n", name, s.Hits, s.Misses, s.Size)
	}
	return tw.finish()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
