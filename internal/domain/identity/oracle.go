package identity

import "context"

// Stereoisomer is one fully stereo-resolved variant of a connectivity graph.
type Stereoisomer struct {
	Geometry string `json:"geometry"`
	Smiles   string `json:"smiles"`
	InChI    string `json:"inchi"`
	AMChI    string `json:"amchi"`
}

// ReactionChannel is one stereo-resolved elementary step found between a
// reactant and a product graph. Several channels may share the same net
// reactant and product identifiers.
type ReactionChannel struct {
	Smiles         string   `json:"smiles"`
	ReactantInChIs []string `json:"r_inchis"`
	ProductInChIs  []string `json:"p_inchis"`
	ReactantAMChIs []string `json:"r_amchis"`
	ProductAMChIs  []string `json:"p_amchis"`
	TSGeometry     string   `json:"ts_geometry"`
	TSAMChI        string   `json:"ts_amchi"`
	Class          string   `json:"class"`
}

// Oracle is the chemistry toolkit. Every method is deterministic: the same
// input always produces the same output. Unparseable input fails with
// errors.ErrCodeMalformedIdentifier; transport failures with
// errors.ErrCodeOracleUnavailable.
type Oracle interface {
	// ConnectivitySmiles returns the canonical SMILES with stereo removed.
	ConnectivitySmiles(ctx context.Context, smiles string) (string, error)
	InChI(ctx context.Context, smiles string, stereo bool) (string, error)
	AMChI(ctx context.Context, smiles string, stereo bool) (string, error)
	// ChIKey digests an InChI or AMChI string into its key.
	ChIKey(ctx context.Context, chi string) (string, error)
	// ChISmiles converts an InChI or AMChI string back to SMILES.
	ChISmiles(ctx context.Context, chi string) (string, error)
	SVG(ctx context.Context, smiles string) (string, error)
	LowSpinMultiplicity(ctx context.Context, chi string) (int, error)
	Stereoisomers(ctx context.Context, smiles string) ([]Stereoisomer, error)
	ReactionChannels(ctx context.Context, reactants, products string) ([]ReactionChannel, error)
	// GeometryAMChI computes the AMChI represented by an xyz block.
	GeometryAMChI(ctx context.Context, xyz string) (string, error)
	// NormalizeGeometry parses and re-serialises an xyz block.
	NormalizeGeometry(ctx context.Context, xyz string) (string, error)
}
