package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCmd prints the build version.
func NewVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the batchrun version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("batchrun %s (%s, %s/%s)\n", ver, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
