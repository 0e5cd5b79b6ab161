// Package cli provides the command-line interface for sqlsense.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/sqlsense/internal/cli/commands"
	"github.com/leapstack-labs/sqlsense/internal/cli/config"
	intconfig "github.com/leapstack-labs/sqlsense/internal/config"
	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
	"github.com/spf13/cobra"

	// Register database adapters.
	_ "github.com/leapstack-labs/sqlsense/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/sqlsense/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/sqlsense/pkg/adapters/sqlite"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sqlsense",
		Short: "sqlsense - schema-aware SQL intelligence",
		Long: `sqlsense reads your database schema and uses it to complete, validate and
navigate SQL.

Use it from an editor through the LSP server, from tools through the HTTP
API, or directly from the shell. Without a connection it still completes
keywords and functions for the selected dialect.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger, err := config.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			if f := config.GetConfigFileUsed(); f != "" {
				logger.Debug("using config file", "path", f)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}}\ncommit %s, built %s\n", GitCommit, BuildDate))

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: sqlsense.yaml in this or a parent directory)")
	pf.String("dsn", "", "Database connection string, e.g. postgres://user@host/db or app.db")
	pf.String("driver", "", "Database driver ("+strings.Join(adapter.ListAdapters(), "|")+")")
	pf.String("dialect", "", "SQL dialect, overriding the one implied by the driver")
	pf.String("schema-fixture", "", "YAML schema used when no database is configured")
	pf.String("snapshots", "", "Path to the schema snapshot database")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return intconfig.OutputFormats(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return adapter.ListAdapters(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return dialect.List(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(commands.BuildInfo{Version: Version, Commit: GitCommit, BuildDate: BuildDate}))
	rootCmd.AddCommand(commands.NewLSPCommand(Version))
	rootCmd.AddCommand(commands.NewServeCommand(Version))
	rootCmd.AddCommand(commands.NewCompleteCommand())
	rootCmd.AddCommand(commands.NewHoverCommand())
	rootCmd.AddCommand(commands.NewDefinitionCommand())
	rootCmd.AddCommand(commands.NewReferencesCommand())
	rootCmd.AddCommand(commands.NewRenameCommand())
	rootCmd.AddCommand(commands.NewSignatureCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewSchemaCommand())
	rootCmd.AddCommand(commands.NewREPLCommand())
	rootCmd.AddCommand(commands.NewDialectsCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for sqlsense.

To load completions:

Bash:
  $ source <(sqlsense completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ sqlsense completion bash > /etc/bash_completion.d/sqlsense
  # macOS:
  $ sqlsense completion bash > $(brew --prefix)/etc/bash_completion.d/sqlsense

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ sqlsense completion zsh > "${fpath[1]}/_sqlsense"

Fish:
  $ sqlsense completion fish | source

  # To load completions for each session, execute once:
  $ sqlsense completion fish > ~/.config/fish/completions/sqlsense.fish

PowerShell:
  PS> sqlsense completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
