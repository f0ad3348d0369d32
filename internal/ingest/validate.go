package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rshade/batchrun/internal/retry"
)

// MaxValidationErrors caps the number of messages kept in a ValidationResult.
const MaxValidationErrors = 10

// ErrNoRows is reported when there is nothing to validate.
var ErrNoRows = errors.New("no data rows found")

// ValidationResult reports whether rows carry every required field.
//
// Errors holds at most MaxValidationErrors messages; TotalErrors counts all of
// them. Valid is false whenever TotalErrors > 0.
type ValidationResult struct {
	Valid       bool
	Errors      []string
	TotalErrors int
}

// Truncated reports whether messages were dropped because of the cap.
func (r ValidationResult) Truncated() bool {
	return r.TotalErrors > len(r.Errors)
}

// Err returns the kept messages as validation errors, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, msg := range r.Errors {
		errs = append(errs, retry.Validation("", msg))
	}
	return errors.Join(errs...)
}

type collector struct {
	result ValidationResult
}

func (c *collector) add(format string, args ...interface{}) {
	c.result.TotalErrors++
	if len(c.result.Errors) < MaxValidationErrors {
		c.result.Errors = append(c.result.Errors, fmt.Sprintf(format, args...))
	}
}

func (c *collector) done() ValidationResult {
	c.result.Valid = c.result.TotalErrors == 0
	return c.result
}

// ValidateRequired checks rows parsed with a header line. The columns of the
// first row stand for the header. Rows are numbered as in the source file,
// with the header on line 1.
func ValidateRequired(rows []Record, required []string) ValidationResult {
	var header []string
	if len(rows) > 0 {
		for name := range rows[0] {
			header = append(header, name)
		}
	}
	return validate(header, rows, required, 2)
}

// Validate checks the table's rows for required fields.
func (t *Table) Validate(required []string) ValidationResult {
	firstLine := 1
	if t.HasHeader {
		firstLine = 2
	}
	return validate(t.Header, t.Rows, required, firstLine)
}

func validate(header []string, rows []Record, required []string, firstLine int) ValidationResult {
	var c collector

	if len(rows) == 0 {
		c.add("%s", ErrNoRows.Error())
		return c.done()
	}

	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}
	for _, field := range required {
		if !present[field] {
			c.add("missing required column %q", field)
		}
	}

	for i, row := range rows {
		for _, field := range required {
			value, ok := row[field]
			if !ok || strings.TrimSpace(value) == "" {
				c.add("row %d: missing required field %q", i+firstLine, field)
			}
		}
	}

	return c.done()
}
