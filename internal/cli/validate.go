package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rshade/batchrun/internal/ingest"
)

// inputFlags are shared by run and validate.
type inputFlags struct {
	input     string
	noHeader  bool
	delimiter string
	required  []string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "path to the delimited input file (required)")
	cmd.Flags().BoolVar(&f.noHeader, "no-header", false, "the first line is data; columns are named column_1..column_N")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", ",", `field delimiter: one character, or "tab"`)
	cmd.Flags().StringSliceVar(&f.required, "required", nil, "columns that must be present and non-blank in every row")
	_ = cmd.MarkFlagRequired("input")
}

// parseOptions converts the flags into ingest options.
func (f *inputFlags) parseOptions() (ingest.ParseOptions, error) {
	delim, err := parseDelimiter(f.delimiter)
	if err != nil {
		return ingest.ParseOptions{}, err
	}
	return ingest.ParseOptions{Delimiter: delim, HasHeader: !f.noHeader}, nil
}

// load parses the input file.
func (f *inputFlags) load() (*ingest.Table, error) {
	opts, err := f.parseOptions()
	if err != nil {
		return nil, err
	}
	return ingest.ParseFile(f.input, opts)
}

func parseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "tab", `\t`:
		return '\t', nil
	case "":
		return ingest.DefaultDelimiter, nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\n' || r[0] == '\r' {
		return 0, fmt.Errorf("invalid delimiter %q: must be a single character other than quote or newline", s)
	}
	return r[0], nil
}

// printValidation writes a validation report to the command's error stream.
func printValidation(cmd *cobra.Command, res ingest.ValidationResult) {
	for _, msg := range res.Errors {
		cmd.PrintErrf("  - %s\n", msg)
	}
	if res.Truncated() {
		cmd.PrintErrf("  ... and %d more\n", res.TotalErrors-len(res.Errors))
	}
}

// NewValidateCmd checks an input file without processing it.
func NewValidateCmd() *cobra.Command {
	var flags inputFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an input file for required columns and fields",
		Example: `  # Require email and name in every row
  batchrun validate --input users.csv --required email,name

  # Tab separated input without a header line
  batchrun validate --input data.tsv --delimiter tab --no-header --required column_1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := flags.load()
			if err != nil {
				return err
			}

			res := table.Validate(flags.required)
			logger.Debug().
				Ctx(cmd.Context()).
				Str("input", flags.input).
				Int("rows", len(table.Rows)).
				Int("errors", res.TotalErrors).
				Msg("input validated")

			if !res.Valid {
				cmd.PrintErrf("%s: %d validation error(s)\n", flags.input, res.TotalErrors)
				printValidation(cmd, res)
				return &ExitError{ExitCode: 1, Reason: "input validation failed"}
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %d columns, valid\n",
				flags.input, len(table.Rows), len(table.Header))
			return err
		},
	}

	flags.register(cmd)
	return cmd
}
