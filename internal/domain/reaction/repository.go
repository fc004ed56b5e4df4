package reaction

import (
	"context"

	"github.com/turtacn/flame-data/internal/domain/identity"
)

// Repository persists the reaction hierarchy.
type Repository interface {
	// Search returns every reaction connectivity matching the filter, in
	// formula order of the reactants.
	Search(ctx context.Context, filter identity.FormulaFilter) ([]*Connectivity, error)

	// FindConnectivity looks a reaction connectivity up by its hash pair.
	// Returns a NotFound error when absent.
	FindConnectivity(ctx context.Context, pair identity.HashPair) (*Connectivity, error)

	// Create inserts the connectivity, its channels, estates, transition
	// states and participant links in one transaction serialised on the hash
	// pair. When the pair already exists nothing is written and created is
	// false.
	Create(ctx context.Context, rows *Rows) (connID int64, created bool, err error)

	// Get returns one reaction connectivity by id.
	Get(ctx context.Context, connID int64) (*Connectivity, error)

	// Reactions returns every channel of a connectivity with its TS data.
	Reactions(ctx context.Context, connID int64) ([]*Detail, error)

	// GetTS returns one transition state row.
	GetTS(ctx context.Context, id int64) (*TS, error)

	// UpdateTSGeometry replaces the geometry of one transition state.
	UpdateTSGeometry(ctx context.Context, id int64, xyz string) error

	// Delete removes a reaction connectivity and everything it owns.
	Delete(ctx context.Context, connID int64) error
}
