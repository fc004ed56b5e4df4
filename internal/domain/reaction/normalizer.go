package reaction

import (
	"context"
	"sort"

	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/pkg/errors"
)

// side holds the connectivity identifiers of one side of a reaction.
type side struct {
	smiles      string
	components  []string
	svg         string
	inchi       string
	inchiHash   string
	amchi       string
	amchiHash   string
	formula     identity.Formula
	formulas    []string
	inchis      []string
	inchiHashes []string
	amchis      []string
	amchiHashes []string
}

func normalizeSide(ctx context.Context, o identity.Oracle, smi string) (*side, error) {
	conn, err := o.ConnectivitySmiles(ctx, smi)
	if err != nil {
		return nil, err
	}
	s := &side{smiles: conn}

	if s.inchi, err = o.InChI(ctx, conn, false); err != nil {
		return nil, err
	}
	if s.amchi, err = o.AMChI(ctx, conn, false); err != nil {
		return nil, err
	}
	if s.inchis, err = identity.SplitChI(s.inchi); err != nil {
		return nil, err
	}
	if s.amchis, err = identity.SplitChI(s.amchi); err != nil {
		return nil, err
	}
	if s.svg, err = o.SVG(ctx, conn); err != nil {
		return nil, err
	}
	if s.formula, err = identity.FormulaFromChI(s.inchi); err != nil {
		return nil, err
	}

	if s.inchiHash, err = chiHash(ctx, o, s.inchi); err != nil {
		return nil, err
	}
	if s.amchiHash, err = chiHash(ctx, o, s.amchi); err != nil {
		return nil, err
	}

	for _, ich := range s.inchis {
		smi, err := o.ChISmiles(ctx, ich)
		if err != nil {
			return nil, err
		}
		s.components = append(s.components, smi)

		fml, err := identity.FormulaFromChI(ich)
		if err != nil {
			return nil, err
		}
		s.formulas = append(s.formulas, fml.String())

		h, err := chiHash(ctx, o, ich)
		if err != nil {
			return nil, err
		}
		s.inchiHashes = append(s.inchiHashes, h)
	}
	for _, ach := range s.amchis {
		h, err := chiHash(ctx, o, ach)
		if err != nil {
			return nil, err
		}
		s.amchiHashes = append(s.amchiHashes, h)
	}
	return s, nil
}

func chiHash(ctx context.Context, o identity.Oracle, chi string) (string, error) {
	key, err := o.ChIKey(ctx, chi)
	if err != nil {
		return "", err
	}
	return identity.FirstHash(key), nil
}

// ConnectivityRow computes the connectivity columns of a reaction SMILES.
// Each side is normalised on its own and the canonical reaction SMILES is
// rebuilt from the per-component identifiers. RConnIDs and PConnIDs are left
// empty for the caller to resolve.
func ConnectivityRow(ctx context.Context, o identity.Oracle, smi string) (*Connectivity, error) {
	rxn, err := identity.ParseReactionSmiles(smi)
	if err != nil {
		return nil, err
	}
	r, err := normalizeSide(ctx, o, rxn.ReactantSmiles())
	if err != nil {
		return nil, err
	}
	p, err := normalizeSide(ctx, o, rxn.ProductSmiles())
	if err != nil {
		return nil, err
	}

	return &Connectivity{
		Formula:          r.formula.String(),
		ConnSmiles:       identity.FormatReactionSmiles(r.components, p.components),
		RSVG:             r.svg,
		PSVG:             p.svg,
		RConnInChI:       r.inchi,
		PConnInChI:       p.inchi,
		RConnInChIHash:   r.inchiHash,
		PConnInChIHash:   p.inchiHash,
		RConnAMChI:       r.amchi,
		PConnAMChI:       p.amchi,
		RConnAMChIHash:   r.amchiHash,
		PConnAMChIHash:   p.amchiHash,
		RFormulas:        r.formulas,
		PFormulas:        p.formulas,
		RConnInChIs:      r.inchis,
		PConnInChIs:      p.inchis,
		RConnInChIHashes: r.inchiHashes,
		PConnInChIHashes: p.inchiHashes,
		RConnAMChIs:      r.amchis,
		PConnAMChIs:      p.amchis,
		RConnAMChIHashes: r.amchiHashes,
		PConnAMChIHashes: p.amchiHashes,
	}, nil
}

// EstateRow computes the low-spin multiplicity of the transition state from
// the multiplicities of the individual participants.
func EstateRow(ctx context.Context, o identity.Oracle, smi string) (*Estate, error) {
	rxn, err := identity.ParseReactionSmiles(smi)
	if err != nil {
		return nil, err
	}
	mults := func(smis []string) ([]int, error) {
		out := make([]int, 0, len(smis))
		for _, s := range smis {
			ich, err := o.InChI(ctx, s, false)
			if err != nil {
				return nil, err
			}
			m, err := o.LowSpinMultiplicity(ctx, ich)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	}
	rm, err := mults(rxn.Reactants)
	if err != nil {
		return nil, err
	}
	pm, err := mults(rxn.Products)
	if err != nil {
		return nil, err
	}
	return &Estate{SpinMult: identity.TSLowSpinMultiplicity(rm, pm)}, nil
}

type channelRow struct {
	reaction Reaction
	ts       TS
}

// ChannelRows enumerates the stereo-resolved channels between the two sides
// of smi and groups the transition states by net (reactants, products)
// AMChI key pair, so that several elementary steps that connect the same
// stereoisomers share one Reaction. Groups are ordered by key pair.
func ChannelRows(ctx context.Context, o identity.Oracle, smi string) ([]Channel, error) {
	rxn, err := identity.ParseReactionSmiles(smi)
	if err != nil {
		return nil, err
	}
	rsmi, err := o.ConnectivitySmiles(ctx, rxn.ReactantSmiles())
	if err != nil {
		return nil, err
	}
	psmi, err := o.ConnectivitySmiles(ctx, rxn.ProductSmiles())
	if err != nil {
		return nil, err
	}
	found, err := o.ReactionChannels(ctx, rsmi, psmi)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, errors.Newf(errors.ErrCodeMalformedIdentifier, "No reaction channels connect %s", smi)
	}

	rows := make([]channelRow, 0, len(found))
	for _, ch := range found {
		row, err := buildChannelRow(ctx, o, ch)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].reaction, rows[j].reaction
		if a.RAMChIKey != b.RAMChIKey {
			return a.RAMChIKey < b.RAMChIKey
		}
		return a.PAMChIKey < b.PAMChIKey
	})

	var out []Channel
	for _, row := range rows {
		n := len(out)
		if n > 0 && out[n-1].Reaction.RAMChIKey == row.reaction.RAMChIKey &&
			out[n-1].Reaction.PAMChIKey == row.reaction.PAMChIKey {
			out[n-1].TSs = append(out[n-1].TSs, row.ts)
			continue
		}
		out = append(out, Channel{Reaction: row.reaction, TSs: []TS{row.ts}})
	}
	return out, nil
}

func buildChannelRow(ctx context.Context, o identity.Oracle, ch identity.ReactionChannel) (channelRow, error) {
	rach, err := identity.JoinChI(ch.ReactantAMChIs)
	if err != nil {
		return channelRow{}, err
	}
	pach, err := identity.JoinChI(ch.ProductAMChIs)
	if err != nil {
		return channelRow{}, err
	}
	keys := func(chis ...string) ([]string, error) {
		out := make([]string, len(chis))
		for i, c := range chis {
			k, err := o.ChIKey(ctx, c)
			if err != nil {
				return nil, err
			}
			out[i] = k
		}
		return out, nil
	}
	pair, err := keys(rach, pach, ch.TSAMChI)
	if err != nil {
		return channelRow{}, err
	}
	racks, err := keys(ch.ReactantAMChIs...)
	if err != nil {
		return channelRow{}, err
	}
	packs, err := keys(ch.ProductAMChIs...)
	if err != nil {
		return channelRow{}, err
	}

	return channelRow{
		reaction: Reaction{
			Smiles:     ch.Smiles,
			RAMChI:     rach,
			PAMChI:     pach,
			RAMChIKey:  pair[0],
			PAMChIKey:  pair[1],
			RInChIs:    ch.ReactantInChIs,
			PInChIs:    ch.ProductInChIs,
			RAMChIs:    ch.ReactantAMChIs,
			PAMChIs:    ch.ProductAMChIs,
			RAMChIKeys: racks,
			PAMChIKeys: packs,
		},
		ts: TS{
			Geometry: ch.TSGeometry,
			Class:    ch.Class,
			AMChI:    ch.TSAMChI,
			AMChIKey: pair[2],
		},
	}, nil
}

// BuildRows assembles the full insert bundle for a reaction SMILES.
func BuildRows(ctx context.Context, o identity.Oracle, smi string) (*Rows, error) {
	conn, err := ConnectivityRow(ctx, o, smi)
	if err != nil {
		return nil, err
	}
	estate, err := EstateRow(ctx, o, conn.ConnSmiles)
	if err != nil {
		return nil, err
	}
	channels, err := ChannelRows(ctx, o, conn.ConnSmiles)
	if err != nil {
		return nil, err
	}
	return &Rows{Connectivity: *conn, Estate: *estate, Channels: channels}, nil
}

// NormalizeTSGeometry re-serialises a transition-state geometry. Unlike the
// species path there is no identity check: stored TS geometries are not in
// AMChI atom order, so the AMChI cannot be recomputed from coordinates alone.
func NormalizeTSGeometry(ctx context.Context, o identity.Oracle, xyz string) (string, error) {
	return o.NormalizeGeometry(ctx, xyz)
}
