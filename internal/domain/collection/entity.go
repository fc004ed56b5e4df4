// Package collection models user-owned named sets of species and reaction
// instances.
package collection

import (
	"github.com/turtacn/flame-data/internal/domain/reaction"
	"github.com/turtacn/flame-data/internal/domain/species"
)

// Collection is a named set owned by one user. (UserID, Name) is unique.
type Collection struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID int64  `json:"user_id"`
}

// SpeciesSummary is a species connectivity with the ids of its isomers that
// belong to a collection.
type SpeciesSummary struct {
	species.Connectivity
	SpeciesIDs []int64 `json:"species_ids"`
}

// ReactionSummary is a reaction connectivity with the ids of its channels
// that belong to a collection.
type ReactionSummary struct {
	reaction.Connectivity
	ReactionIDs []int64 `json:"reaction_ids"`
}

// SpeciesData is the display and export form of one collected isomer.
type SpeciesData struct {
	Formula    string `json:"formula"`
	ConnSmiles string `json:"conn_smiles"`
	SpinMult   int    `json:"spin_mult"`
	Smiles     string `json:"smiles"`
	InChI      string `json:"inchi"`
	AMChI      string `json:"amchi"`
	Geometry   string `json:"geometry"`
}

// TransitionState is the display form of one TS.
type TransitionState struct {
	Geometry string `json:"geometry"`
	Class    string `json:"class"`
	AMChI    string `json:"amchi"`
}

// ReactionData is the display and export form of one collected channel.
type ReactionData struct {
	ID               int64             `json:"-"`
	Formula          string            `json:"formula"`
	ConnSmiles       string            `json:"conn_smiles"`
	Smiles           string            `json:"smiles"`
	SpinMult         int               `json:"spin_mult"`
	RSpinMults       []int64           `json:"r_spin_mults"`
	RInChIs          []string          `json:"r_inchis"`
	RAMChIs          []string          `json:"r_amchis"`
	PSpinMults       []int64           `json:"p_spin_mults"`
	PInChIs          []string          `json:"p_inchis"`
	PAMChIs          []string          `json:"p_amchis"`
	TransitionStates []TransitionState `json:"transition_states"`
}

// Contents is a collection with its display data.
type Contents struct {
	Name      string          `json:"name"`
	Species   []*SpeciesData  `json:"species"`
	Reactions []*ReactionData `json:"reactions"`
}

// Overview lists one collection with the connectivities it references.
type Overview struct {
	Collection
	Species   []*SpeciesSummary  `json:"species"`
	Reactions []*ReactionSummary `json:"reactions"`
}
