package commands

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
	"github.com/spf13/cobra"
)

// BuildInfo identifies a build and what it was compiled with.
type BuildInfo struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit,omitempty"`
	BuildDate string   `json:"build_date,omitempty"`
	GoVersion string   `json:"go_version"`
	Dialects  []string `json:"dialects"`
	Drivers   []string `json:"drivers"`
}

// NewVersionCommand creates the version command. Dialects, drivers and the
// Go version are filled in when it runs.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the sqlsense version, the commit it was built from, and the
dialects and database drivers compiled into this binary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if short {
				_, err := fmt.Fprintln(out, info.Version)
				return err
			}

			info.GoVersion = runtime.Version()
			info.Dialects = dialect.List()
			info.Drivers = adapter.ListAdapters()

			if f := cmd.Flag("output"); f != nil && f.Value.String() == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "sqlsense v%s\n", info.Version)
			b.WriteString("Schema-aware SQL completion, validation and navigation\n\n")
			if info.Commit != "" && info.Commit != "unknown" {
				fmt.Fprintf(&b, "  commit:   %s\n", info.Commit)
			}
			if info.BuildDate != "" && info.BuildDate != "unknown" {
				fmt.Fprintf(&b, "  built:    %s\n", info.BuildDate)
			}
			fmt.Fprintf(&b, "  go:       %s\n", info.GoVersion)
			fmt.Fprintf(&b, "  dialects: %s\n", joinOrNone(info.Dialects))
			fmt.Fprintf(&b, "  drivers:  %s\n", joinOrNone(info.Drivers))
			_, err := fmt.Fprint(out, b.String())
			return err
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
