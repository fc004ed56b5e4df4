// Package identity holds the connectivity identity model: the seven key
// flavors a species may be looked up by, their reduction to a hash prefix,
// and the identifier helpers (formula, ChI components, reaction SMILES,
// spin multiplicity) that do not need the chemistry oracle.
package identity

import (
	"strings"

	"github.com/turtacn/flame-data/pkg/errors"
)

// KeyType names one of the identifier flavors accepted by lookups.
type KeyType string

const (
	KeySmiles    KeyType = "smiles"
	KeyInChI     KeyType = "inchi"
	KeyAMChI     KeyType = "amchi"
	KeyInChIKey  KeyType = "inchi_key"
	KeyAMChIKey  KeyType = "amchi_key"
	KeyInChIHash KeyType = "inchi_hash"
	KeyAMChIHash KeyType = "amchi_hash"
)

// KeyTypes lists every recognised flavor in reduction order.
var KeyTypes = []KeyType{
	KeySmiles, KeyInChI, KeyAMChI, KeyInChIKey, KeyAMChIKey, KeyInChIHash, KeyAMChIHash,
}

// Key is an identifier tagged with its flavor. The concrete types below are
// the only implementations.
type Key interface {
	Type() KeyType
	String() string
	isKey()
}

type (
	Smiles    string
	InChI     string
	AMChI     string
	InChIKey  string
	AMChIKey  string
	InChIHash string
	AMChIHash string
)

func (Smiles) Type() KeyType    { return KeySmiles }
func (InChI) Type() KeyType     { return KeyInChI }
func (AMChI) Type() KeyType     { return KeyAMChI }
func (InChIKey) Type() KeyType  { return KeyInChIKey }
func (AMChIKey) Type() KeyType  { return KeyAMChIKey }
func (InChIHash) Type() KeyType { return KeyInChIHash }
func (AMChIHash) Type() KeyType { return KeyAMChIHash }

func (k Smiles) String() string    { return string(k) }
func (k InChI) String() string     { return string(k) }
func (k AMChI) String() string     { return string(k) }
func (k InChIKey) String() string  { return string(k) }
func (k AMChIKey) String() string  { return string(k) }
func (k InChIHash) String() string { return string(k) }
func (k AMChIHash) String() string { return string(k) }

func (Smiles) isKey()    {}
func (InChI) isKey()     {}
func (AMChI) isKey()     {}
func (InChIKey) isKey()  {}
func (AMChIKey) isKey()  {}
func (InChIHash) isKey() {}
func (AMChIHash) isKey() {}

// ParseKeyType validates a flavor name, case-insensitively.
func ParseKeyType(s string) (KeyType, error) {
	t := KeyType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range KeyTypes {
		if t == known {
			return t, nil
		}
	}
	return "", errors.Newf(errors.ErrCodeInvalidKeyType, "Invalid key type %q", s)
}

// NewKey builds the Key of the given flavor. An unrecognised flavor fails
// here with InvalidKeyType rather than deep inside the reduction.
func NewKey(keyType string, value string) (Key, error) {
	t, err := ParseKeyType(keyType)
	if err != nil {
		return nil, err
	}
	switch t {
	case KeySmiles:
		return Smiles(value), nil
	case KeyInChI:
		return InChI(value), nil
	case KeyAMChI:
		return AMChI(value), nil
	case KeyInChIKey:
		return InChIKey(value), nil
	case KeyAMChIKey:
		return AMChIKey(value), nil
	case KeyInChIHash:
		return InChIHash(value), nil
	default:
		return AMChIHash(value), nil
	}
}

// SameFamily reports whether two keys reduce to the same hash flavor.
func SameFamily(a, b Key) bool {
	return isAMChIFamily(a) == isAMChIFamily(b)
}

func isAMChIFamily(k Key) bool {
	switch k.(type) {
	case AMChI, AMChIKey, AMChIHash, Smiles:
		return true
	}
	return false
}
