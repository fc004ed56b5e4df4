package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/infrastructure/database/postgres"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
)

// Migrator applies the embedded schema migrations.
type Migrator interface {
	Up() (uint, error)
	Down(steps int) error
	Status() (version uint, dirty bool, err error)
	Force(version int) error
}

type postgresMigrator struct {
	url string
}

func newPostgresMigrator(cfg *config.Config) Migrator {
	return postgresMigrator{url: postgres.DSN(cfg.Database)}
}

func (m postgresMigrator) Up() (uint, error)           { return postgres.RunMigrations(m.url) }
func (m postgresMigrator) Down(steps int) error        { return postgres.RollbackMigration(m.url, steps) }
func (m postgresMigrator) Status() (uint, bool, error) { return postgres.MigrationStatus(m.url) }
func (m postgresMigrator) Force(version int) error     { return postgres.ForceMigrationVersion(m.url, version) }

func newMigrateCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	withMigrator := func(run func(cmd *cobra.Command, m Migrator, log logging.Logger, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return run(cmd, s.migrator(cc.Config), cc.Logger, args)
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, log logging.Logger, _ []string) error {
			v, err := m.Up()
			if err != nil {
				return err
			}
			log.Info("migrations applied", logging.Int64("version", int64(v)))
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
			return nil
		}),
	}

	down := &cobra.Command{
		Use:   "down N",
		Short: "Roll back the last N migrations",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, log logging.Logger, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("N must be a positive integer, got %q", args[0])
			}
			if err := m.Down(n); err != nil {
				return err
			}
			log.Info("migrations rolled back", logging.Int("steps", n))
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", n)
			return nil
		}),
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, _ logging.Logger, _ []string) error {
			v, dirty, err := m.Status()
			if err != nil {
				return err
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (%s)\n", v, state)
			return nil
		}),
	}

	force := &cobra.Command{
		Use:   "force V",
		Short: "Mark the schema as version V without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, log logging.Logger, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < -1 {
				return fmt.Errorf("V must be an integer version, got %q", args[0])
			}
			if err := m.Force(v); err != nil {
				return err
			}
			log.Warn("schema version forced", logging.Int("version", v))
			fmt.Fprintf(cmd.OutOrStdout(), "schema forced to version %d\n", v)
			return nil
		}),
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}
