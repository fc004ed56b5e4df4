package client

import (
	"context"
	"fmt"
)

// CollectionsClient covers the /api/collection routes. Every call needs a
// logged-in session.
type CollectionsClient struct {
	client *Client
}

// Collection is a named set owned by one user.
type Collection struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID int64  `json:"user_id"`
}

// CollectionOverview lists a collection with the connectivities it references.
type CollectionOverview struct {
	Collection
	Species []struct {
		SpeciesConnectivity
		SpeciesIDs []int64 `json:"species_ids"`
	} `json:"species"`
	Reactions []struct {
		ReactionConnectivity
		ReactionIDs []int64 `json:"reaction_ids"`
	} `json:"reactions"`
}

// CollectedSpecies is the display form of one collected isomer.
type CollectedSpecies struct {
	Formula    string `json:"formula"`
	ConnSmiles string `json:"conn_smiles"`
	SpinMult   int    `json:"spin_mult"`
	Smiles     string `json:"smiles"`
	InChI      string `json:"inchi"`
	AMChI      string `json:"amchi"`
	Geometry   string `json:"geometry"`
}

// CollectedReaction is the display form of one collected channel.
type CollectedReaction struct {
	Formula          string `json:"formula"`
	ConnSmiles       string `json:"conn_smiles"`
	Smiles           string `json:"smiles"`
	SpinMult         int    `json:"spin_mult"`
	TransitionStates []struct {
		Geometry string `json:"geometry"`
		Class    string `json:"class"`
		AMChI    string `json:"amchi"`
	} `json:"transition_states"`
}

// CollectionContents is a collection with its display data.
type CollectionContents struct {
	Name      string               `json:"name"`
	Species   []*CollectedSpecies  `json:"species"`
	Reactions []*CollectedReaction `json:"reactions"`
}

// Export locates an uploaded export bundle.
type Export struct {
	Object string `json:"object"`
	URL    string `json:"url"`
}

type membersBody struct {
	ConnIDs []int64 `json:"conn_ids"`
}

// List returns the caller's collections.
func (cc *CollectionsClient) List(ctx context.Context) ([]*CollectionOverview, error) {
	var out []*CollectionOverview
	if err := cc.client.get(ctx, "/api/collection", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create makes a new collection. A duplicate name is a 409 APIError.
func (cc *CollectionsClient) Create(ctx context.Context, name string) (*Collection, error) {
	var out Collection
	if err := cc.client.post(ctx, "/api/collection", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns a collection's contents.
func (cc *CollectionsClient) Get(ctx context.Context, id int64) (*CollectionContents, error) {
	var out CollectionContents
	if err := cc.client.get(ctx, fmt.Sprintf("/api/collection/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a collection. The referenced data is kept.
func (cc *CollectionsClient) Delete(ctx context.Context, id int64) error {
	return cc.client.delete(ctx, fmt.Sprintf("/api/collection/%d", id), nil)
}

// AddSpecies adds every isomer of the given species connectivities.
func (cc *CollectionsClient) AddSpecies(ctx context.Context, id int64, connIDs ...int64) error {
	return cc.client.post(ctx, fmt.Sprintf("/api/collection/species/%d", id), membersBody{connIDs}, nil)
}

// RemoveSpecies drops every isomer of the given species connectivities.
func (cc *CollectionsClient) RemoveSpecies(ctx context.Context, id int64, connIDs ...int64) error {
	return cc.client.delete(ctx, fmt.Sprintf("/api/collection/species/%d", id), membersBody{connIDs})
}

// AddReactions adds the channels of the given reaction connectivities
// together with their participant species.
func (cc *CollectionsClient) AddReactions(ctx context.Context, id int64, connIDs ...int64) error {
	return cc.client.post(ctx, fmt.Sprintf("/api/collection/reaction/%d", id), membersBody{connIDs}, nil)
}

// RemoveReactions drops the channels of the given reaction connectivities.
func (cc *CollectionsClient) RemoveReactions(ctx context.Context, id int64, connIDs ...int64) error {
	return cc.client.delete(ctx, fmt.Sprintf("/api/collection/reaction/%d", id), membersBody{connIDs})
}

// Export bundles the collection server side and returns a download link.
func (cc *CollectionsClient) Export(ctx context.Context, id int64) (*Export, error) {
	var out Export
	if err := cc.client.post(ctx, fmt.Sprintf("/api/collection/%d/export", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
