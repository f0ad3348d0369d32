// Package engine renders batch run results in the CLI output formats.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rshade/batchrun/internal/engine/batch"
	"github.com/rshade/batchrun/internal/ingest"
	"github.com/rshade/batchrun/internal/retry"
)

// ErrUnknownFormat is returned by Render for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Supported output formats.
const (
	FormatTable  = "table"
	FormatJSON   = "json"
	FormatNDJSON = "ndjson"
	FormatCSV    = "csv"
)

// Columns appended to the input columns in CSV output. When an input column
// already has the name, the appended one is prefixed with "_".
const (
	ColumnStatus   = "status"
	ColumnAttempts = "attempts"
	ColumnError    = "error"
)

// Table layout.
const (
	tabwriterPadding = 2
	colWidthError    = 60
	truncateMinLen   = 3
)

// Status values used in table and CSV output.
const (
	statusOK     = "ok"
	statusFailed = "failed"
)

// RecordResult is the result type of a run over ingested records.
type RecordResult[Out any] = batch.Result[ingest.Record, Out]

// ItemOutput is the JSON shape of one item result.
type ItemOutput[Out any] struct {
	Index      int           `json:"index"`
	Success    bool          `json:"success"`
	Attempts   int           `json:"attempts"`
	DurationMS int64         `json:"durationMs"`
	Input      ingest.Record `json:"input"`
	Output     *Out          `json:"output,omitempty"`
	Error      string        `json:"error,omitempty"`
	ErrorKind  string        `json:"errorKind,omitempty"`
}

// SummaryOutput is the JSON shape of batch.Summary.
type SummaryOutput struct {
	RunID        string `json:"runId"`
	Total        int    `json:"total"`
	Successful   int    `json:"successful"`
	Failed       int    `json:"failed"`
	Skipped      int    `json:"skipped"`
	TotalRetries int    `json:"totalRetries"`
	Aborted      bool   `json:"aborted"`
	DurationMS   int64  `json:"durationMs"`
}

// Metadata describes where the results came from.
type Metadata struct {
	Input       string    `json:"input,omitempty"`
	Processor   string    `json:"processor"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// JSONOutput is the top-level JSON document.
type JSONOutput[Out any] struct {
	Metadata Metadata          `json:"metadata"`
	Summary  SummaryOutput     `json:"summary"`
	Results  []ItemOutput[Out] `json:"results"`
}

// Render writes res to w in format. header gives the input column order for
// table and CSV output.
func Render[Out any](w io.Writer, format string, header []string, res *RecordResult[Out], meta Metadata) error {
	switch format {
	case FormatTable, "":
		return RenderTable(w, res)
	case FormatJSON:
		return RenderJSON(w, res, meta)
	case FormatNDJSON:
		return RenderNDJSON(w, res)
	case FormatCSV:
		return RenderCSV(w, header, res)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// NewSummaryOutput converts a summary for JSON output.
func NewSummaryOutput(s batch.Summary) SummaryOutput {
	return SummaryOutput{
		RunID:        s.RunID,
		Total:        s.Total,
		Successful:   s.Successful,
		Failed:       s.Failed,
		Skipped:      s.Total - s.Processed(),
		TotalRetries: s.TotalRetries,
		Aborted:      s.Aborted,
		DurationMS:   s.Duration.Milliseconds(),
	}
}

// NewItemOutput converts one item result for JSON output.
func NewItemOutput[Out any](r batch.ItemResult[ingest.Record, Out]) ItemOutput[Out] {
	item := ItemOutput[Out]{
		Index:      r.Index,
		Success:    r.Success,
		Attempts:   r.Attempts,
		DurationMS: r.Duration.Milliseconds(),
		Input:      r.Input,
	}
	if r.Success {
		out := r.Output
		item.Output = &out
	}
	if r.Err != nil {
		item.Error = r.Err.Error()
		item.ErrorKind = retry.KindOf(r.Err).String()
	}
	return item
}

// RenderTable writes one row per item followed by a summary line.
func RenderTable[Out any](w io.Writer, res *RecordResult[Out]) error {
	tw := tabwriter.NewWriter(w, 0, 0, tabwriterPadding, ' ', 0)

	if _, err := fmt.Fprintf(tw, "INDEX\tSTATUS\tATTEMPTS\tDURATION\tERROR\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := fmt.Fprintf(tw, "-----\t------\t--------\t--------\t-----\n"); err != nil {
		return fmt.Errorf("writing separator: %w", err)
	}

	for _, r := range res.Results {
		status := statusOK
		errText := "-"
		if !r.Success {
			status = statusFailed
			if r.Err != nil {
				errText = truncate(singleLine(r.Err.Error()), colWidthError)
			}
		}
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			r.Index, status, r.Attempts, r.Duration.Round(time.Millisecond), errText,
		); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	if _, err := fmt.Fprintf(tw, "\t\t\t\t\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(tw, "SUMMARY\t%s\t\t\t\n", res.Summary); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	return tw.Flush()
}

// RenderJSON writes the metadata, summary and item results as one document.
func RenderJSON[Out any](w io.Writer, res *RecordResult[Out], meta Metadata) error {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now()
	}

	// Empty slice so JSON produces [] instead of null.
	items := make([]ItemOutput[Out], 0, len(res.Results))
	for _, r := range res.Results {
		items = append(items, NewItemOutput(r))
	}

	output := JSONOutput[Out]{
		Metadata: meta,
		Summary:  NewSummaryOutput(res.Summary),
		Results:  items,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// RenderNDJSON writes each item result as a separate JSON line with no
// summary.
func RenderNDJSON[Out any](w io.Writer, res *RecordResult[Out]) error {
	for _, r := range res.Results {
		data, marshalErr := json.Marshal(NewItemOutput(r))
		if marshalErr != nil {
			return fmt.Errorf("marshaling item %d: %w", r.Index, marshalErr)
		}
		if _, writeErr := fmt.Fprintf(w, "%s\n", data); writeErr != nil {
			return fmt.Errorf("writing NDJSON line: %w", writeErr)
		}
	}
	return nil
}

// RenderCSV writes the input columns plus status, attempts and error.
func RenderCSV[Out any](w io.Writer, header []string, res *RecordResult[Out]) error {
	taken := make(map[string]bool, len(header))
	for _, name := range header {
		taken[name] = true
	}
	statusCol := resultColumn(ColumnStatus, taken)
	attemptsCol := resultColumn(ColumnAttempts, taken)
	errorCol := resultColumn(ColumnError, taken)

	cols := make([]string, 0, len(header)+3)
	cols = append(cols, header...)
	cols = append(cols, statusCol, attemptsCol, errorCol)

	rows := make([]ingest.Record, 0, len(res.Results))
	for _, r := range res.Results {
		row := make(ingest.Record, len(cols))
		for _, name := range header {
			row[name] = r.Input[name]
		}
		row[statusCol] = statusOK
		if !r.Success {
			row[statusCol] = statusFailed
		}
		row[attemptsCol] = strconv.Itoa(r.Attempts)
		if r.Err != nil {
			row[errorCol] = singleLine(r.Err.Error())
		}
		rows = append(rows, row)
	}

	out, err := ingest.FormatDelimited(cols, rows, ingest.DefaultDelimiter)
	if err != nil {
		return fmt.Errorf("formatting CSV: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// resultColumn returns name, prefixed with underscores until it no longer
// clashes with an input column, and marks it taken.
func resultColumn(name string, taken map[string]bool) string {
	for taken[name] {
		name = "_" + name
	}
	taken[name] = true
	return name
}

// singleLine flattens joined errors onto one line.
func singleLine(s string) string {
	return strings.ReplaceAll(s, "\n", "; ")
}

// truncate shortens s to maxLen characters.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= truncateMinLen {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
