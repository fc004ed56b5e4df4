// Package reaction models the reaction side of the connectivity hierarchy:
// one Connectivity per ordered (reactants, products) graph pair, one
// Reaction per stereo-resolved net channel, one Estate per channel and one
// or more TS rows per estate.
package reaction

import "time"

// Connectivity is a reaction graph pair without stereochemistry. The ordered
// pair (RConnAMChIHash, PConnAMChIHash) is the deduplication key. The list
// columns hold one entry per participant, reactants first.
type Connectivity struct {
	ID               int64     `json:"id"`
	Formula          string    `json:"formula"`
	ConnSmiles       string    `json:"conn_smiles"`
	RSVG             string    `json:"r_svg_string"`
	PSVG             string    `json:"p_svg_string"`
	RConnInChI       string    `json:"r_conn_inchi"`
	PConnInChI       string    `json:"p_conn_inchi"`
	RConnInChIHash   string    `json:"r_conn_inchi_hash"`
	PConnInChIHash   string    `json:"p_conn_inchi_hash"`
	RConnAMChI       string    `json:"r_conn_amchi"`
	PConnAMChI       string    `json:"p_conn_amchi"`
	RConnAMChIHash   string    `json:"r_conn_amchi_hash"`
	PConnAMChIHash   string    `json:"p_conn_amchi_hash"`
	RFormulas        []string  `json:"r_formulas"`
	PFormulas        []string  `json:"p_formulas"`
	RConnInChIs      []string  `json:"r_conn_inchis"`
	PConnInChIs      []string  `json:"p_conn_inchis"`
	RConnInChIHashes []string  `json:"r_conn_inchi_hashes"`
	PConnInChIHashes []string  `json:"p_conn_inchi_hashes"`
	RConnAMChIs      []string  `json:"r_conn_amchis"`
	PConnAMChIs      []string  `json:"p_conn_amchis"`
	RConnAMChIHashes []string  `json:"r_conn_amchi_hashes"`
	PConnAMChIHashes []string  `json:"p_conn_amchi_hashes"`
	RConnIDs         []int64   `json:"r_conn_ids"`
	PConnIDs         []int64   `json:"p_conn_ids"`
	CreatedAt        time.Time `json:"created_at"`
}

// ParticipantConnIDs returns the distinct species connectivity ids of both
// sides.
func (c *Connectivity) ParticipantConnIDs() []int64 {
	seen := map[int64]bool{}
	var out []int64
	for _, ids := range [][]int64{c.RConnIDs, c.PConnIDs} {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// Reaction is one stereo-resolved net channel.
type Reaction struct {
	ID         int64    `json:"id"`
	ConnID     int64    `json:"conn_id"`
	Smiles     string   `json:"smiles"`
	RAMChI     string   `json:"r_amchi"`
	PAMChI     string   `json:"p_amchi"`
	RAMChIKey  string   `json:"r_amchi_key"`
	PAMChIKey  string   `json:"p_amchi_key"`
	RInChIs    []string `json:"r_inchis"`
	PInChIs    []string `json:"p_inchis"`
	RAMChIs    []string `json:"r_amchis"`
	PAMChIs    []string `json:"p_amchis"`
	RAMChIKeys []string `json:"r_amchi_keys"`
	PAMChIKeys []string `json:"p_amchi_keys"`
}

// Estate is the spin state of a reaction channel.
type Estate struct {
	ID         int64 `json:"id"`
	ReactionID int64 `json:"reaction_id"`
	SpinMult   int   `json:"spin_mult"`
}

// TS is one transition-state geometry of an estate.
type TS struct {
	ID       int64  `json:"id"`
	EstateID int64  `json:"estate_id"`
	Geometry string `json:"geometry"`
	Class    string `json:"class"`
	AMChI    string `json:"amchi"`
	AMChIKey string `json:"amchi_key"`
}

// Channel is a reaction row with the transition states grouped under it.
type Channel struct {
	Reaction Reaction
	TSs      []TS
}

// Rows is the insert-ready bundle for one new reaction connectivity. The
// participant id lists of Connectivity must be filled before insertion.
type Rows struct {
	Connectivity Connectivity
	Estate       Estate
	Channels     []Channel
}

// Detail is a reaction joined with its connectivity, estate and the
// aggregated transition states.
type Detail struct {
	Reaction
	Formula    string   `json:"formula"`
	ConnSmiles string   `json:"conn_smiles"`
	RConnIDs   []int64  `json:"r_conn_ids"`
	PConnIDs   []int64  `json:"p_conn_ids"`
	SpinMult   int      `json:"spin_mult"`
	TSIDs      []int64  `json:"ts_ids"`
	Geometries []string `json:"geometries"`
	Classes    []string `json:"classes"`
	AMChIs     []string `json:"amchis"`
	AMChIKeys  []string `json:"amchi_keys"`
}
