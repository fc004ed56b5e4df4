package cli

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reactionapp "github.com/turtacn/flame-data/internal/application/reaction"
	speciesapp "github.com/turtacn/flame-data/internal/application/species"
	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/domain/reaction"
	"github.com/turtacn/flame-data/internal/domain/species"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

type fakeSpecies struct {
	added []string
}

func (f *fakeSpecies) Search(context.Context, identity.FormulaFilter) ([]*species.Connectivity, error) {
	return nil, nil
}

func (f *fakeSpecies) Hash(_ context.Context, key identity.Key) (identity.Hash, error) {
	return identity.Hash{Value: "HASH-" + key.String(), AMChI: key.Type() == identity.KeyAMChI}, nil
}

func (f *fakeSpecies) Lookup(context.Context, identity.Key) (*species.Connectivity, error) {
	return nil, errors.NotFound(0)
}

func (f *fakeSpecies) Add(_ context.Context, smi string) (*speciesapp.AddResult, error) {
	f.added = append(f.added, smi)
	if smi == "bad" {
		return nil, errors.New(errors.ErrCodeMalformedIdentifier, "Cannot parse SMILES bad")
	}
	return &speciesapp.AddResult{ConnID: int64(len(f.added)), Created: true}, nil
}

func (f *fakeSpecies) AddBatch(ctx context.Context, smiles []string) []*speciesapp.ItemResult {
	out := make([]*speciesapp.ItemResult, 0, len(smiles))
	for _, smi := range smiles {
		res, err := f.Add(ctx, smi)
		if err != nil {
			out = append(out, &speciesapp.ItemResult{Smiles: smi, Status: 400, Error: errors.PublicMessage(err)})
			continue
		}
		out = append(out, &speciesapp.ItemResult{Smiles: smi, ConnID: res.ConnID, Created: res.Created, Status: 201})
	}
	return out
}

func (f *fakeSpecies) Get(context.Context, int64) ([]*species.Isomer, error) { return nil, nil }
func (f *fakeSpecies) Delete(context.Context, int64) error                   { return nil }
func (f *fakeSpecies) UpdateGeometry(context.Context, int64, string) error   { return nil }

type fakeReactions struct{}

func (fakeReactions) Search(context.Context, identity.FormulaFilter) ([]*reaction.Connectivity, error) {
	return nil, nil
}

func (fakeReactions) Lookup(context.Context, identity.Key, identity.Key) (*reaction.Connectivity, error) {
	return nil, nil
}

func (fakeReactions) Add(_ context.Context, smi string) (*speciesapp.AddResult, error) {
	if !strings.Contains(smi, ">>") {
		return nil, errors.New(errors.ErrCodeNotAReaction, "Not a reaction SMILES string")
	}
	return &speciesapp.AddResult{ConnID: 3, Created: true}, nil
}

func (fakeReactions) Get(context.Context, int64) (*reactionapp.Details, error) { return nil, nil }
func (fakeReactions) Delete(context.Context, int64) error                      { return nil }
func (fakeReactions) UpdateTSGeometry(context.Context, int64, string) error    { return nil }

type fakeMigrator struct {
	version uint
	dirty   bool
	down    int
	forced  int
}

func (m *fakeMigrator) Up() (uint, error)           { return m.version, nil }
func (m *fakeMigrator) Down(steps int) error        { m.down = steps; return nil }
func (m *fakeMigrator) Status() (uint, bool, error) { return m.version, m.dirty, nil }
func (m *fakeMigrator) Force(version int) error     { m.forced = version; return nil }

type harness struct {
	species    *fakeSpecies
	migrator   *fakeMigrator
	bootstraps int
}

func newHarness() *harness {
	return &harness{species: &fakeSpecies{}, migrator: &fakeMigrator{version: 1}}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(
		WithConfig(&config.Config{}),
		WithLogger(logging.NewNopLogger()),
		WithMigrator(func(*config.Config) Migrator { return h.migrator }),
		WithBootstrap(func(context.Context, *CLIContext) (*App, error) {
			h.bootstraps++
			return &App{Species: h.species, Reactions: fakeReactions{}}, nil
		}),
	)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "flamedata", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "species", "reaction", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
	for _, flag := range []string{"config", "log-level", "output", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, "c", cmd.PersistentFlags().Lookup("config").Shorthand)
}

func TestVersion_NeedsNoConfig(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "flamedata "+Version)
	assert.Contains(t, out.String(), "commit: "+GitCommit)
}

func TestUnknownSubcommand(t *testing.T) {
	_, err := newHarness().run(t, "", "bogus")
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "", "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema at version 1")

	_, err = h.run(t, "", "migrate", "down", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, h.migrator.down)

	_, err = h.run(t, "", "migrate", "down", "zero")
	assert.Error(t, err)
	_, err = h.run(t, "", "migrate", "down")
	assert.Error(t, err)

	h.migrator.dirty = true
	out, err = h.run(t, "", "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "version 1 (dirty)")

	_, err = h.run(t, "", "migrate", "force", "3")
	require.NoError(t, err)
	assert.Equal(t, 3, h.migrator.forced)
	assert.Zero(t, h.bootstraps)
}

func TestSpeciesAdd(t *testing.T) {
	h := newHarness()
	out, err := h.run(t, "", "species", "add", "C", "CCO")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "CCO"}, h.species.added)
	assert.Contains(t, out, "C\tcreated 1")
	assert.Contains(t, out, "CCO\tcreated 2")

	out, err = h.run(t, "", "species", "add", "bad", "O")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out, "bad\tfailed: Cannot parse SMILES bad")
}

func TestSpeciesImport_Stdin(t *testing.T) {
	h := newHarness()
	out, err := h.run(t, "# fuels\nC methane\n\n  CCO\n", "-o", "table", "species", "import", "-")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "CCO"}, h.species.added)
	assert.Contains(t, out, "SMILES")
	assert.Contains(t, out, "CONN_ID")

	_, err = h.run(t, "", "species", "import", "/nonexistent/file.smi")
	assert.Error(t, err)
}

func TestSpeciesHash(t *testing.T) {
	h := newHarness()
	out, err := h.run(t, "", "-o", "json", "species", "hash", "--type", "amchi", "AMChI=1/CH4/h1H4")
	require.NoError(t, err)
	assert.Contains(t, out, `"hash": "HASH-AMChI=1/CH4/h1H4"`)
	assert.Contains(t, out, `"column": "conn_amchi_hash"`)

	_, err = h.run(t, "", "species", "hash", "--type", "cas", "64-17-5")
	assert.Error(t, err)
	assert.Equal(t, 1, h.bootstraps, "invalid type must fail before connecting")
}

func TestReactionAdd(t *testing.T) {
	h := newHarness()
	out, err := h.run(t, "", "reaction", "add", "C.[OH]>>[CH3].O")
	require.NoError(t, err)
	assert.Contains(t, out, "created 3")

	out, err = h.run(t, "", "reaction", "add", "CCO")
	assert.Error(t, err)
	assert.Contains(t, out, "Not a reaction SMILES string")
}

func TestServe_StopsOnCancel(t *testing.T) {
	cc := &CLIContext{
		Config: &config.Config{Server: config.ServerConfig{Port: 0}},
		Logger: logging.NewNopLogger(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := serve(ctx, cc, func(context.Context, *CLIContext) (*App, error) {
		return &App{Handler: http.NotFoundHandler()}, nil
	})
	assert.NoError(t, err)
}

func TestServe_BootstrapFailure(t *testing.T) {
	cc := &CLIContext{Config: &config.Config{}, Logger: logging.NewNopLogger()}
	err := serve(context.Background(), cc, func(context.Context, *CLIContext) (*App, error) {
		return nil, errors.New(errors.ErrCodeDatabaseError, "database unreachable")
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestReadSmiles(t *testing.T) {
	got, err := readSmiles(strings.NewReader("C\n# comment\n\nCC ethane\r\n[OH]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "CC", "[OH]"}, got)
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"A", "LONG"}, [][]string{{"xyz", "1"}, {"q"}})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "A    LONG", lines[0])
	assert.Equal(t, "---  ----", lines[1])
	assert.Equal(t, "xyz  1   ", lines[2])
	assert.Empty(t, FormatTable(nil, nil))
}

func TestPrintResult_DefaultsToText(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, PrintResult(cmd, HashResult{Hash: "abc"}))
	assert.Equal(t, "abc\n", out.String())
}
