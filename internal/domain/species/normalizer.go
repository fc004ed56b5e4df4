package species

import (
	"context"

	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/pkg/errors"
)

// ConnectivityRow computes the connectivity columns for smi. Stereo markers
// are dropped before any identifier is derived.
func ConnectivityRow(ctx context.Context, o identity.Oracle, smi string) (*Connectivity, error) {
	conn, err := o.ConnectivitySmiles(ctx, smi)
	if err != nil {
		return nil, err
	}
	ich, err := o.InChI(ctx, conn, false)
	if err != nil {
		return nil, err
	}
	ach, err := o.AMChI(ctx, conn, false)
	if err != nil {
		return nil, err
	}
	ick, err := o.ChIKey(ctx, ich)
	if err != nil {
		return nil, err
	}
	ack, err := o.ChIKey(ctx, ach)
	if err != nil {
		return nil, err
	}
	fml, err := identity.FormulaFromChI(ich)
	if err != nil {
		return nil, err
	}
	svg, err := o.SVG(ctx, conn)
	if err != nil {
		return nil, err
	}

	return &Connectivity{
		Formula:       fml.String(),
		SVG:           svg,
		ConnSmiles:    conn,
		ConnInChI:     ich,
		ConnInChIHash: identity.FirstHash(ick),
		ConnAMChI:     ach,
		ConnAMChIHash: identity.FirstHash(ack),
	}, nil
}

// EstateRow computes the low-spin electronic state of smi.
func EstateRow(ctx context.Context, o identity.Oracle, smi string) (*Estate, error) {
	ich, err := o.InChI(ctx, smi, false)
	if err != nil {
		return nil, err
	}
	mult, err := o.LowSpinMultiplicity(ctx, ich)
	if err != nil {
		return nil, err
	}
	return &Estate{SpinMult: mult}, nil
}

// InstanceRows expands smi into one row per stereoisomer. A graph always has
// at least one isomer; an empty expansion is reported as malformed input.
func InstanceRows(ctx context.Context, o identity.Oracle, smi string) ([]Species, error) {
	isos, err := o.Stereoisomers(ctx, smi)
	if err != nil {
		return nil, err
	}
	if len(isos) == 0 {
		return nil, errors.Newf(errors.ErrCodeMalformedIdentifier, "No stereoisomers generated for %s", smi)
	}

	rows := make([]Species, 0, len(isos))
	for _, iso := range isos {
		key, err := o.ChIKey(ctx, iso.AMChI)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Species{
			Geometry: iso.Geometry,
			Smiles:   iso.Smiles,
			InChI:    iso.InChI,
			AMChI:    iso.AMChI,
			AMChIKey: key,
		})
	}
	return rows, nil
}

// BuildRows assembles the full insert bundle for smi.
func BuildRows(ctx context.Context, o identity.Oracle, smi string) (*Rows, error) {
	conn, err := ConnectivityRow(ctx, o, smi)
	if err != nil {
		return nil, err
	}
	estate, err := EstateRow(ctx, o, conn.ConnSmiles)
	if err != nil {
		return nil, err
	}
	isos, err := InstanceRows(ctx, o, conn.ConnSmiles)
	if err != nil {
		return nil, err
	}
	return &Rows{Connectivity: *conn, Estate: *estate, Species: isos}, nil
}

// ValidateGeometry checks that xyz still describes the isomer identified by
// amchi and returns the normalised block. A different structure fails with
// IdentityMismatch.
func ValidateGeometry(ctx context.Context, o identity.Oracle, amchi, xyz string) (string, error) {
	got, err := o.GeometryAMChI(ctx, xyz)
	if err != nil {
		return "", err
	}
	if got != amchi {
		return "", errors.Newf(errors.ErrCodeIdentityMismatch, "Invalid xyz string for species %s:\n%s", amchi, xyz)
	}
	return o.NormalizeGeometry(ctx, xyz)
}
