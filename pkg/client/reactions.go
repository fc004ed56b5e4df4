package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// ReactionsClient covers the /api/reaction routes.
type ReactionsClient struct {
	client *Client
}

// ReactionConnectivity is a reaction connectivity with its participant lists.
type ReactionConnectivity struct {
	ID             int64     `json:"id"`
	Formula        string    `json:"formula"`
	ConnSmiles     string    `json:"conn_smiles"`
	RSVG           string    `json:"r_svg_string"`
	PSVG           string    `json:"p_svg_string"`
	RConnAMChI     string    `json:"r_conn_amchi"`
	PConnAMChI     string    `json:"p_conn_amchi"`
	RConnAMChIHash string    `json:"r_conn_amchi_hash"`
	PConnAMChIHash string    `json:"p_conn_amchi_hash"`
	RFormulas      []string  `json:"r_formulas"`
	PFormulas      []string  `json:"p_formulas"`
	RConnIDs       []int64   `json:"r_conn_ids"`
	PConnIDs       []int64   `json:"p_conn_ids"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReactionChannel is one stereo-resolved channel with its transition states.
type ReactionChannel struct {
	ID         int64    `json:"id"`
	ConnID     int64    `json:"conn_id"`
	Smiles     string   `json:"smiles"`
	RAMChI     string   `json:"r_amchi"`
	PAMChI     string   `json:"p_amchi"`
	SpinMult   int      `json:"spin_mult"`
	TSIDs      []int64  `json:"ts_ids"`
	Geometries []string `json:"geometries"`
	Classes    []string `json:"classes"`
	AMChIs     []string `json:"amchis"`
}

// ReactionDetails is a connectivity with its channels.
type ReactionDetails struct {
	ReactionConnectivity
	Reactions []*ReactionChannel `json:"reactions"`
}

// Search lists reaction connectivities.
func (r *ReactionsClient) Search(ctx context.Context, q SearchQuery) ([]*ReactionConnectivity, error) {
	var out []*ReactionConnectivity
	if err := r.client.get(ctx, "/api/reaction/connectivity"+q.encode(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a connectivity and its channels.
func (r *ReactionsClient) Get(ctx context.Context, connID int64) (*ReactionDetails, error) {
	var out ReactionDetails
	if err := r.client.get(ctx, fmt.Sprintf("/api/reaction/connectivity/%d", connID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Lookup finds a connectivity by its reactant and product identifiers.
func (r *ReactionsClient) Lookup(ctx context.Context, keyType, reactants, products string) (*ReactionConnectivity, error) {
	v := url.Values{"type": {keyType}, "reactants": {reactants}, "products": {products}}
	var out ReactionConnectivity
	if err := r.client.get(ctx, "/api/reaction/lookup?"+v.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Add registers a reaction SMILES (reactants>>products).
func (r *ReactionsClient) Add(ctx context.Context, smiles string) (*AddResult, error) {
	var out AddResult
	if err := r.client.post(ctx, "/api/reaction/connectivity", map[string]string{"smiles": smiles}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTS replaces a transition state geometry with XYZ text.
func (r *ReactionsClient) UpdateTS(ctx context.Context, tsID int64, xyz string) error {
	return r.client.put(ctx, fmt.Sprintf("/api/reaction/ts/%d", tsID), map[string]string{"geometry": xyz})
}

// Delete removes a reaction connectivity.
func (r *ReactionsClient) Delete(ctx context.Context, connID int64) error {
	return r.client.delete(ctx, fmt.Sprintf("/api/reaction/connectivity/%d", connID), nil)
}
