package species_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/domain/species"
	"github.com/turtacn/flame-data/internal/testutil"
	"github.com/turtacn/flame-data/pkg/errors"
)

func TestConnectivityRow(t *testing.T) {
	ctx := context.Background()
	o := testutil.NewFakeOracle()

	row, err := species.ConnectivityRow(ctx, o, "CCO")
	require.NoError(t, err)
	assert.Equal(t, "C2H6O", row.Formula)
	assert.Equal(t, "CCO", row.ConnSmiles)
	assert.Equal(t, "InChI=1S/C2H6O/cCCO", row.ConnInChI)
	assert.Equal(t, "AMChI=1/C2H6O/cCCO", row.ConnAMChI)
	assert.Equal(t, testutil.FixtureHash(row.ConnAMChI), row.ConnAMChIHash)
	assert.Equal(t, testutil.FixtureHash(row.ConnInChI), row.ConnInChIHash)
	assert.NotEmpty(t, row.SVG)

	h, err := identity.ConnectivityHash(ctx, o, identity.Smiles("CCO"))
	require.NoError(t, err)
	assert.Equal(t, row.ConnAMChIHash, h.Value)
}

func TestConnectivityRow_Malformed(t *testing.T) {
	_, err := species.ConnectivityRow(context.Background(), testutil.NewFakeOracle(), "C1CC(")
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedIdentifier))
}

func TestEstateRow(t *testing.T) {
	ctx := context.Background()
	o := testutil.NewFakeOracle()

	e, err := species.EstateRow(ctx, o, "CC(O[O])C")
	require.NoError(t, err)
	assert.Equal(t, 2, e.SpinMult)

	e, err = species.EstateRow(ctx, o, "CCO")
	require.NoError(t, err)
	assert.Equal(t, 1, e.SpinMult)
}

func TestInstanceRows(t *testing.T) {
	ctx := context.Background()
	o := testutil.NewFakeOracle()

	rows, err := species.InstanceRows(ctx, o, "CC(O[O])C")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(rows), 1)

	rows, err = species.InstanceRows(ctx, o, "CC(O)CC")
	require.NoError(t, err)
	require.Greater(t, len(rows), 1)
	for _, r := range rows {
		assert.Equal(t, testutil.FixtureKey(r.AMChI), r.AMChIKey)
		assert.NotEmpty(t, r.Geometry)
	}
}

func TestInstanceRows_EmptyExpansion(t *testing.T) {
	o := testutil.NewFakeOracle()
	o.RegisterSpecies(testutil.SpeciesFixture{Smiles: "[He]", Formula: "He", Isomers: -1})

	_, err := species.InstanceRows(context.Background(), o, "[He]")
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedIdentifier))
}

func TestBuildRows(t *testing.T) {
	rows, err := species.BuildRows(context.Background(), testutil.NewFakeOracle(), "[CH2]C(O)CC")
	require.NoError(t, err)
	assert.Equal(t, "C4H9O", rows.Connectivity.Formula)
	assert.Equal(t, 2, rows.Estate.SpinMult)
	assert.Len(t, rows.Species, 2)
}

func TestValidateGeometry(t *testing.T) {
	ctx := context.Background()
	o := testutil.NewFakeOracle()

	isos, err := o.Stereoisomers(ctx, "CCC")
	require.NoError(t, err)
	propane := isos[0].AMChI

	xyz, err := species.ValidateGeometry(ctx, o, propane, isos[0].Geometry+"   ")
	require.NoError(t, err)
	assert.Equal(t, isos[0].Geometry, xyz)

	ethanol, err := o.Stereoisomers(ctx, "CCO")
	require.NoError(t, err)
	_, err = species.ValidateGeometry(ctx, o, propane, ethanol[0].Geometry)
	assert.True(t, errors.IsCode(err, errors.ErrCodeIdentityMismatch))
}
