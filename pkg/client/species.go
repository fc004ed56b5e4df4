package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// SpeciesClient covers the /api/species routes.
type SpeciesClient struct {
	client *Client
}

// SpeciesConnectivity is a species connectivity record.
type SpeciesConnectivity struct {
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

// Isomer is one stereoisomer of a connectivity, flattened with its
// electronic state and geometry.
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

// AddResult reports the connectivity an add resolved to.
type AddResult struct {
	ConnID  int64 `json:"conn_id"`
	Created bool  `json:"created"`
}

// BatchItem is the outcome of one SMILES in a batch add.
type BatchItem struct {
	Smiles  string `json:"smiles"`
	ConnID  int64  `json:"conn_id,omitempty"`
	Created bool   `json:"created,omitempty"`
	Status  int    `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether the item was rejected.
func (b *BatchItem) Failed() bool { return b.Status >= 400 }

// SearchQuery filters connectivities by formula. An empty Formula lists all.
type SearchQuery struct {
	Formula string
	Partial bool
}

func (q SearchQuery) encode() string {
	v := url.Values{}
	if q.Formula != "" {
		v.Set("formula", q.Formula)
	}
	if q.Partial {
		v.Set("partial", "")
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// Search lists species connectivities.
func (s *SpeciesClient) Search(ctx context.Context, q SearchQuery) ([]*SpeciesConnectivity, error) {
	var out []*SpeciesConnectivity
	if err := s.client.get(ctx, "/api/species/connectivity"+q.encode(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the isomers of a connectivity.
func (s *SpeciesClient) Get(ctx context.Context, connID int64) ([]*Isomer, error) {
	var out []*Isomer
	if err := s.client.get(ctx, fmt.Sprintf("/api/species/connectivity/%d", connID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Lookup finds a connectivity by an identifier of the given type
// (smiles, inchi or amchi).
func (s *SpeciesClient) Lookup(ctx context.Context, keyType, key string) (*SpeciesConnectivity, error) {
	v := url.Values{"type": {keyType}, "key": {key}}
	var out SpeciesConnectivity
	if err := s.client.get(ctx, "/api/species/lookup?"+v.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Add registers a species and files it in the caller's default collection.
func (s *SpeciesClient) Add(ctx context.Context, smiles string) (*AddResult, error) {
	var out AddResult
	if err := s.client.post(ctx, "/api/species/connectivity", map[string]string{"smiles": smiles}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddBatch registers several species. Per-item failures are reported in the
// result, not as an error.
func (s *SpeciesClient) AddBatch(ctx context.Context, smiles []string) ([]*BatchItem, error) {
	var out []*BatchItem
	body := map[string][]string{"smilesList": smiles}
	if err := s.client.post(ctx, "/api/species/connectivity/batch", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateGeometry replaces the geometry of a species isomer with XYZ text.
func (s *SpeciesClient) UpdateGeometry(ctx context.Context, speciesID int64, xyz string) error {
	return s.client.put(ctx, fmt.Sprintf("/api/species/%d", speciesID), map[string]string{"geometry": xyz})
}

// Delete removes a connectivity and everything under it.
func (s *SpeciesClient) Delete(ctx context.Context, connID int64) error {
	return s.client.delete(ctx, fmt.Sprintf("/api/species/connectivity/%d", connID), nil)
}
