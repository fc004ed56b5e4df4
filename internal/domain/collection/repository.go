package collection

import "context"

// Repository persists collections and their membership rows. Membership
// inserts are idempotent: re-adding a pair is a no-op.
type Repository interface {
	// Create inserts a collection. A duplicate (user, name) pair fails with
	// a Conflict error.
	Create(ctx context.Context, userID int64, name string) (*Collection, error)

	// FindByName returns the user's collection with the given name, or a
	// NotFound error.
	FindByName(ctx context.Context, userID int64, name string) (*Collection, error)

	// Get returns a collection by id, or a NotFound error.
	Get(ctx context.Context, id int64) (*Collection, error)

	// ListByUser returns every collection of a user ordered by id.
	ListByUser(ctx context.Context, userID int64) ([]*Collection, error)

	// Delete removes a collection and its membership rows.
	Delete(ctx context.Context, id int64) error

	// AddSpeciesConnectivity adds every isomer of a species connectivity.
	AddSpeciesConnectivity(ctx context.Context, collID, connID int64) error

	// RemoveSpeciesConnectivity removes every isomer of a species
	// connectivity.
	RemoveSpeciesConnectivity(ctx context.Context, collID, connID int64) error

	// AddReactionConnectivity adds every channel of a reaction connectivity
	// together with every isomer of each participant species connectivity.
	AddReactionConnectivity(ctx context.Context, collID, connID int64) error

	// RemoveReactionConnectivity removes the channels of a reaction
	// connectivity only. Participant species stay in the collection.
	RemoveReactionConnectivity(ctx context.Context, collID, connID int64) error

	// SpeciesSummaries groups the collected isomers by connectivity.
	SpeciesSummaries(ctx context.Context, collID int64) ([]*SpeciesSummary, error)

	// ReactionSummaries groups the collected channels by connectivity.
	ReactionSummaries(ctx context.Context, collID int64) ([]*ReactionSummary, error)

	// SpeciesData returns the display rows of every collected isomer.
	SpeciesData(ctx context.Context, collID int64) ([]*SpeciesData, error)

	// ReactionData returns the display rows of every collected channel with
	// participant and transition-state details.
	ReactionData(ctx context.Context, collID int64) ([]*ReactionData, error)
}
