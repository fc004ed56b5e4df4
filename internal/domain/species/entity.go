// Package species models the species side of the connectivity hierarchy:
// one Connectivity per molecular graph, one Estate per spin multiplicity and
// one Species per fully stereo-resolved isomer.
package species

import "time"

// Connectivity is a molecular graph without stereochemistry or electronic
// state. ConnAMChIHash is the deduplication key.
type Connectivity struct {
	ID            int64     `json:"id"`
	Formula       string    `json:"formula"`
	SVG           string    `json:"svg_string"`
	ConnSmiles    string    `json:"conn_smiles"`
	ConnInChI     string    `json:"conn_inchi"`
	ConnInChIHash string    `json:"conn_inchi_hash"`
	ConnAMChI     string    `json:"conn_amchi"`
	ConnAMChIHash string    `json:"conn_amchi_hash"`
	CreatedAt     time.Time `json:"created_at"`
}

// Estate is one spin multiplicity of a connectivity.
type Estate struct {
	ID       int64 `json:"id"`
	ConnID   int64 `json:"conn_id"`
	SpinMult int   `json:"spin_mult"`
}

// Species is one stereo-resolved isomer. Geometry is an xyz block and is the
// only mutable column.
type Species struct {
	ID       int64  `json:"id"`
	EstateID int64  `json:"estate_id"`
	Geometry string `json:"geometry"`
	Smiles   string `json:"smiles"`
	InChI    string `json:"inchi"`
	AMChI    string `json:"amchi"`
	AMChIKey string `json:"amchi_key"`
}

// Isomer is a species joined with its estate and connectivity.
type Isomer struct {
	ID         int64  `json:"id"`
	ConnID     int64  `json:"conn_id"`
	EstateID   int64  `json:"estate_id"`
	Formula    string `json:"formula"`
	SVG        string `json:"svg_string"`
	ConnSmiles string `json:"conn_smiles"`
	ConnInChI  string `json:"conn_inchi"`
	ConnAMChI  string `json:"conn_amchi"`
	SpinMult   int    `json:"spin_mult"`
	Smiles     string `json:"smiles"`
	InChI      string `json:"inchi"`
	AMChI      string `json:"amchi"`
	Geometry   string `json:"geometry"`
}

// Rows is the insert-ready bundle for one new connectivity.
type Rows struct {
	Connectivity Connectivity
	Estate       Estate
	Species      []Species
}
