package identity

import (
	"context"
	"strings"

	"github.com/turtacn/flame-data/pkg/errors"
)

// Hash is a connectivity hash prefix together with its flavor.
type Hash struct {
	Value string
	AMChI bool
}

// Column names the species_connectivity column a Hash is matched against.
func (h Hash) Column() string {
	if h.AMChI {
		return "conn_amchi_hash"
	}
	return "conn_inchi_hash"
}

// HashPair identifies a reaction connectivity by its ordered reactant and
// product hashes.
type HashPair struct {
	Reactants string
	Products  string
	AMChI     bool
}

// FirstHash extracts the first block of an InChIKey or AMChIKey.
func FirstHash(key string) string {
	if i := strings.IndexByte(key, '-'); i >= 0 {
		return key[:i]
	}
	return key
}

// ChIOracle is the subset of Oracle needed to reduce keys.
type ChIOracle interface {
	AMChI(ctx context.Context, smiles string, stereo bool) (string, error)
	ChIKey(ctx context.Context, chi string) (string, error)
}

// ConnectivityHash reduces any key to its connectivity hash prefix.
//
//	Smiles → AMChI → AMChIKey → AMChIHash
//	InChI  → InChIKey → InChIHash
//
// A key already in hash form is returned unchanged. SMILES reduce through
// the AMChI family because AMChI hashes are the deduplication key.
func ConnectivityHash(ctx context.Context, o ChIOracle, key Key) (Hash, error) {
	switch k := key.(type) {
	case Smiles:
		ach, err := o.AMChI(ctx, string(k), false)
		if err != nil {
			return Hash{}, err
		}
		return ConnectivityHash(ctx, o, AMChI(ach))
	case InChI:
		ick, err := o.ChIKey(ctx, string(k))
		if err != nil {
			return Hash{}, err
		}
		return ConnectivityHash(ctx, o, InChIKey(ick))
	case AMChI:
		ack, err := o.ChIKey(ctx, string(k))
		if err != nil {
			return Hash{}, err
		}
		return ConnectivityHash(ctx, o, AMChIKey(ack))
	case InChIKey:
		return Hash{Value: FirstHash(string(k))}, nil
	case AMChIKey:
		return Hash{Value: FirstHash(string(k)), AMChI: true}, nil
	case InChIHash:
		return Hash{Value: string(k)}, nil
	case AMChIHash:
		return Hash{Value: string(k), AMChI: true}, nil
	case nil:
		return Hash{}, errors.New(errors.ErrCodeInvalidKeyType, "Invalid key type <nil>")
	}
	return Hash{}, errors.Newf(errors.ErrCodeInvalidKeyType, "Invalid key type %T", key)
}

// ReactionHashes reduces a reactant key and a product key of the same flavor
// to the ordered hash pair of a reaction connectivity.
func ReactionHashes(ctx context.Context, o ChIOracle, reactants, products Key) (HashPair, error) {
	if reactants == nil || products == nil || reactants.Type() != products.Type() {
		return HashPair{}, errors.New(errors.ErrCodeInvalidKeyType,
			"Reaction keys require a reactant and a product identifier of the same type")
	}
	rh, err := ConnectivityHash(ctx, o, reactants)
	if err != nil {
		return HashPair{}, err
	}
	ph, err := ConnectivityHash(ctx, o, products)
	if err != nil {
		return HashPair{}, err
	}
	return HashPair{Reactants: rh.Value, Products: ph.Value, AMChI: rh.AMChI}, nil
}

// ReactionKeys splits a reaction SMILES into its reactant and product keys.
func ReactionKeys(reactionSmiles string) (Key, Key, error) {
	rxn, err := ParseReactionSmiles(reactionSmiles)
	if err != nil {
		return nil, nil, err
	}
	return Smiles(rxn.ReactantSmiles()), Smiles(rxn.ProductSmiles()), nil
}
