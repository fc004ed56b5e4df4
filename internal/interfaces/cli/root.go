// Package cli implements the flamedata command tree: the API server, schema
// migrations and offline species and reaction registration.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	ConfigPath   string
	Logger       logging.Logger
	Level        *logging.AtomicLevel
	OutputFormat string
	Timeout      time.Duration
}

// Option customizes the command tree, mostly for tests.
type Option func(*settings)

type settings struct {
	bootstrap BootstrapFunc
	migrator  func(cfg *config.Config) Migrator
	config    *config.Config
	logger    logging.Logger
}

// WithBootstrap replaces the dependency wiring used by serve, species and
// reaction commands.
func WithBootstrap(fn BootstrapFunc) Option { return func(s *settings) { s.bootstrap = fn } }

// WithMigrator replaces the schema migrator used by migrate commands.
func WithMigrator(fn func(cfg *config.Config) Migrator) Option {
	return func(s *settings) { s.migrator = fn }
}

// WithConfig skips config loading and uses cfg as is.
func WithConfig(cfg *config.Config) Option { return func(s *settings) { s.config = cfg } }

// WithLogger skips logger construction.
func WithLogger(l logging.Logger) Option { return func(s *settings) { s.logger = l } }

// NewRootCommand creates the root command with its global flags and every
// subcommand.
func NewRootCommand(opts ...Option) *cobra.Command {
	s := &settings{bootstrap: Bootstrap, migrator: newPostgresMigrator}
	for _, o := range opts {
		o(s)
	}
	ro := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "flamedata",
		Short: "Connectivity-level identity registry for chemical species and reactions",
		Long: "flamedata stores species and reactions keyed by their connectivity\n" +
			"(AMChI / InChI hashes), serves them over a JSON API and organizes them\n" +
			"into per-user collections.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return persistentPreRun(cmd, ro, s)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&ro.ConfigPath, "config", "c", "", "config file path (default: FLAMEDATA_* environment only)")
	pf.StringVar(&ro.LogLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	pf.StringVarP(&ro.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.DurationVar(&ro.Timeout, "timeout", 5*time.Minute, "timeout for offline commands")

	cmd.AddCommand(
		newServeCmd(s),
		newMigrateCmd(s),
		newSpeciesCmd(s),
		newReactionCmd(s),
		newVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, ro *RootOptions, s *settings) error {
	cfg := s.config
	if cfg == nil {
		var err error
		if cfg, err = config.LoadOptional(ro.ConfigPath); err != nil {
			return err
		}
	}
	if ro.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(ro.LogLevel)
	}

	cc := &CLIContext{
		Config:       cfg,
		ConfigPath:   ro.ConfigPath,
		Logger:       s.logger,
		OutputFormat: ro.OutputFormat,
		Timeout:      ro.Timeout,
	}
	if cc.Logger == nil {
		logger, level, err := initLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("logger initialization failed: %w", err)
		}
		cc.Logger, cc.Level = logger, level
		logging.SetDefault(logger)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))
	return nil
}

func initLogger(cfg config.LogConfig) (logging.Logger, *logging.AtomicLevel, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	out := cfg.Output
	if out == "" {
		out = "stderr"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:       level,
		Format:      cfg.Format,
		OutputPaths: []string{out},
	})
}

// GetCLIContext extracts the CLIContext stored by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cc == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLI context not initialized")
	}
	return cc, nil
}

// Execute runs the command tree with os.Args.
func Execute(opts ...Option) error {
	root := NewRootCommand(opts...)
	if err := root.Execute(); err != nil {
		PrintError(root, err)
		return err
	}
	return nil
}

// PrintResult writes data in the output format chosen on the command line.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := "text"
	if cc, err := GetCLIContext(cmd); err == nil {
		format = strings.ToLower(cc.OutputFormat)
	}
	switch format {
	case "json":
		return printJSON(cmd, data)
	case "table":
		return printTable(cmd, data)
	default:
		return printText(cmd, data)
	}
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(cmd *cobra.Command, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

// tableProvider is implemented by results that render as rows.
type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

func printTable(cmd *cobra.Command, data interface{}) error {
	if tp, ok := data.(tableProvider); ok {
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
		return nil
	}
	return printText(cmd, data)
}

// PrintError writes err to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", errors.PublicMessage(err))
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			sb.WriteString(padRight(val, widths[i]))
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// Printing the version needs no configuration.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flamedata %s\ncommit: %s\nbuilt: %s\n", Version, GitCommit, BuildDate)
		},
	}
}
