package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	speciesapp "github.com/turtacn/flame-data/internal/application/species"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

// AddResults lists the outcome of each submitted SMILES.
type AddResults []*speciesapp.ItemResult

func (r AddResults) TableHeaders() []string {
	return []string{"SMILES", "CONN_ID", "STATUS", "ERROR"}
}

func (r AddResults) TableRows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, item := range r {
		id := ""
		if item.ConnID > 0 {
			id = strconv.FormatInt(item.ConnID, 10)
		}
		rows = append(rows, []string{item.Smiles, id, strconv.Itoa(item.Status), item.Error})
	}
	return rows
}

func (r AddResults) String() string {
	var sb strings.Builder
	for _, item := range r {
		switch {
		case item.Error != "":
			fmt.Fprintf(&sb, "%s\tfailed: %s\n", item.Smiles, item.Error)
		case item.Created:
			fmt.Fprintf(&sb, "%s\tcreated %d\n", item.Smiles, item.ConnID)
		default:
			fmt.Fprintf(&sb, "%s\texists %d\n", item.Smiles, item.ConnID)
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (r AddResults) failed() int {
	n := 0
	for _, item := range r {
		if item.Error != "" {
			n++
		}
	}
	return n
}

// HashResult is a key reduced to its connectivity hash.
type HashResult struct {
	Type   string `json:"type"`
	Key    string `json:"key"`
	Hash   string `json:"hash"`
	Column string `json:"column"`
}

func (h HashResult) String() string { return h.Hash }

// withApp bootstraps the dependencies, runs fn under the command timeout and
// releases everything afterwards.
func withApp(s *settings, fn func(ctx context.Context, cmd *cobra.Command, cc *CLIContext, app *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cc, err := GetCLIContext(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if cc.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cc.Timeout)
			defer cancel()
		}
		app, err := s.bootstrap(ctx, cc)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, cmd, cc, app, args)
	}
}

func newSpeciesCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "species",
		Short: "Register and inspect species",
	}

	add := &cobra.Command{
		Use:   "add SMILES...",
		Short: "Register one or more species",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(s, func(ctx context.Context, cmd *cobra.Command, _ *CLIContext, app *App, args []string) error {
			return reportAdds(cmd, AddResults(app.Species.AddBatch(ctx, args)))
		}),
	}

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Register every SMILES in FILE, one per line (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(s, func(ctx context.Context, cmd *cobra.Command, cc *CLIContext, app *App, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			smiles, err := readSmiles(in)
			if err != nil {
				return err
			}
			cc.Logger.Info("importing species", logging.Int("count", len(smiles)), logging.String("source", args[0]))
			return reportAdds(cmd, AddResults(app.Species.AddBatch(ctx, smiles)))
		}),
	}

	var keyType string
	hash := &cobra.Command{
		Use:   "hash KEY",
		Short: "Reduce an identifier to its connectivity hash",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(*cobra.Command, []string) error {
			if _, err := identity.ParseKeyType(keyType); err != nil {
				return errors.Newf(errors.ErrCodeValidation, "unknown key type %q", keyType)
			}
			return nil
		},
		RunE: withApp(s, func(ctx context.Context, cmd *cobra.Command, _ *CLIContext, app *App, args []string) error {
			key, err := identity.NewKey(keyType, args[0])
			if err != nil {
				return err
			}
			h, err := app.Species.Hash(ctx, key)
			if err != nil {
				return err
			}
			return PrintResult(cmd, HashResult{Type: keyType, Key: args[0], Hash: h.Value, Column: h.Column()})
		}),
	}
	hash.Flags().StringVarP(&keyType, "type", "t", string(identity.KeySmiles), "key type (smiles, inchi, amchi, inchi_key, amchi_key, inchi_hash, amchi_hash)")

	cmd.AddCommand(add, importCmd, hash)
	return cmd
}

func newReactionCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reaction",
		Short: "Register reactions",
	}
	add := &cobra.Command{
		Use:   "add SMILES",
		Short: "Register a reaction given as reactants>>products",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(s, func(ctx context.Context, cmd *cobra.Command, _ *CLIContext, app *App, args []string) error {
			item := &speciesapp.ItemResult{Smiles: args[0]}
			res, err := app.Reactions.Add(ctx, args[0])
			if err != nil {
				item.Status = errors.HTTPStatus(err)
				item.Error = errors.PublicMessage(err)
			} else {
				item.ConnID, item.Created = res.ConnID, res.Created
				item.Status = 201
			}
			return reportAdds(cmd, AddResults{item})
		}),
	}
	cmd.AddCommand(add)
	return cmd
}

func reportAdds(cmd *cobra.Command, results AddResults) error {
	if err := PrintResult(cmd, results); err != nil {
		return err
	}
	if n := results.failed(); n > 0 {
		return fmt.Errorf("%d of %d item(s) failed", n, len(results))
	}
	return nil
}

// readSmiles returns the non-blank lines of r. Lines starting with # are
// comments; anything after the first whitespace on a line is ignored.
func readSmiles(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.Fields(line)[0])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read SMILES: %w", err)
	}
	return out, nil
}
