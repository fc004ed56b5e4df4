package identity_test

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/pkg/errors"
)

// keyOracle derives stable fake identifiers from the input text.
type keyOracle struct{ calls int }

func (o *keyOracle) AMChI(_ context.Context, smiles string, _ bool) (string, error) {
	o.calls++
	if strings.Contains(smiles, "(((") {
		return "", errors.New(errors.ErrCodeMalformedIdentifier, "bad smiles")
	}
	return "AMChI=1/" + smiles, nil
}

func (o *keyOracle) ChIKey(_ context.Context, chi string) (string, error) {
	o.calls++
	sum := sha1.Sum([]byte(chi))
	h := strings.ToUpper(hex.EncodeToString(sum[:]))
	return h[:14] + "-" + h[14:24] + "-N", nil
}

func TestParseKeyType(t *testing.T) {
	for _, kt := range identity.KeyTypes {
		got, err := identity.ParseKeyType(strings.ToUpper(string(kt)))
		require.NoError(t, err)
		assert.Equal(t, kt, got)
	}

	_, err := identity.ParseKeyType("cas_number")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidKeyType))
}

func TestNewKey(t *testing.T) {
	cases := map[string]identity.Key{
		"smiles":     identity.Smiles("CCO"),
		"inchi":      identity.InChI("CCO"),
		"amchi":      identity.AMChI("CCO"),
		"inchi_key":  identity.InChIKey("CCO"),
		"amchi_key":  identity.AMChIKey("CCO"),
		"inchi_hash": identity.InChIHash("CCO"),
		"amchi_hash": identity.AMChIHash("CCO"),
	}
	for kt, want := range cases {
		k, err := identity.NewKey(kt, "CCO")
		require.NoError(t, err)
		assert.Equal(t, want, k)
		assert.Equal(t, identity.KeyType(kt), k.Type())
		assert.Equal(t, "CCO", k.String())
	}

	_, err := identity.NewKey("name", "ethanol")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidKeyType))
}

func TestFirstHash(t *testing.T) {
	assert.Equal(t, "LFQSCWFLJHTTHZ", identity.FirstHash("LFQSCWFLJHTTHZ-UHFFFAOYSA-N"))
	assert.Equal(t, "LFQSCWFLJHTTHZ", identity.FirstHash("LFQSCWFLJHTTHZ"))
}

func TestConnectivityHash_Chains(t *testing.T) {
	ctx := context.Background()
	o := &keyOracle{}

	fromSmiles, err := identity.ConnectivityHash(ctx, o, identity.Smiles("CCO"))
	require.NoError(t, err)
	assert.True(t, fromSmiles.AMChI)
	assert.Equal(t, "conn_amchi_hash", fromSmiles.Column())

	fromAMChI, err := identity.ConnectivityHash(ctx, o, identity.AMChI("AMChI=1/CCO"))
	require.NoError(t, err)
	assert.Equal(t, fromSmiles, fromAMChI)

	key, _ := o.ChIKey(ctx, "AMChI=1/CCO")
	fromKey, err := identity.ConnectivityHash(ctx, o, identity.AMChIKey(key))
	require.NoError(t, err)
	assert.Equal(t, fromSmiles, fromKey)

	fromInChI, err := identity.ConnectivityHash(ctx, o, identity.InChI("InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3"))
	require.NoError(t, err)
	assert.False(t, fromInChI.AMChI)
	assert.Equal(t, "conn_inchi_hash", fromInChI.Column())
}

func TestConnectivityHash_Idempotent(t *testing.T) {
	ctx := context.Background()
	o := &keyOracle{}
	inputs := []identity.Key{
		identity.Smiles("CC(O[O])C"),
		identity.InChI("InChI=1S/CH4/h1H4"),
		identity.AMChI("AMChI=1/CH4/h1H4"),
		identity.InChIKey("VNWKTOKETHGBQD-UHFFFAOYSA-N"),
		identity.AMChIKey("VNWKTOKETHGBQD-UHFFFAOYSA-N"),
		identity.InChIHash("VNWKTOKETHGBQD"),
		identity.AMChIHash("VNWKTOKETHGBQD"),
	}
	for _, in := range inputs {
		h, err := identity.ConnectivityHash(ctx, o, in)
		require.NoError(t, err, in.Type())

		var again identity.Key = identity.InChIHash(h.Value)
		if h.AMChI {
			again = identity.AMChIHash(h.Value)
		}
		before := o.calls
		h2, err := identity.ConnectivityHash(ctx, o, again)
		require.NoError(t, err)
		assert.Equal(t, h, h2, in.Type())
		assert.Equal(t, before, o.calls, "hash keys must not reach the oracle")
	}
}

func TestConnectivityHash_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := identity.ConnectivityHash(ctx, &keyOracle{}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidKeyType))

	_, err = identity.ConnectivityHash(ctx, &keyOracle{}, identity.Smiles("C((("))
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedIdentifier))
}

func TestReactionHashes(t *testing.T) {
	ctx := context.Background()
	o := &keyOracle{}

	r, p, err := identity.ReactionKeys("C.[OH]>>[CH3].O")
	require.NoError(t, err)
	assert.Equal(t, identity.Smiles("C.[OH]"), r)
	assert.Equal(t, identity.Smiles("[CH3].O"), p)

	pair, err := identity.ReactionHashes(ctx, o, r, p)
	require.NoError(t, err)
	assert.True(t, pair.AMChI)
	assert.NotEqual(t, pair.Reactants, pair.Products)

	again, err := identity.ReactionHashes(ctx, o, identity.AMChIHash(pair.Reactants), identity.AMChIHash(pair.Products))
	require.NoError(t, err)
	assert.Equal(t, pair, again)

	_, err = identity.ReactionHashes(ctx, o, identity.Smiles("C"), identity.InChI("InChI=1S/CH4/h1H4"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidKeyType))
}

func TestReactionKeys_NotAReaction(t *testing.T) {
	_, _, err := identity.ReactionKeys("CCO")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotAReaction))
}

func TestSameFamily(t *testing.T) {
	assert.True(t, identity.SameFamily(identity.Smiles("C"), identity.AMChIHash("X")))
	assert.False(t, identity.SameFamily(identity.InChI("x"), identity.AMChI("x")))
}
