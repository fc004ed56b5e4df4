package species

import (
	"context"

	"github.com/turtacn/flame-data/internal/domain/identity"
)

// Repository persists the species hierarchy.
type Repository interface {
	// Search returns every connectivity matching the filter, in formula order.
	Search(ctx context.Context, filter identity.FormulaFilter) ([]*Connectivity, error)

	// FindConnectivity looks a connectivity up by hash. Returns a NotFound
	// error when absent.
	FindConnectivity(ctx context.Context, h identity.Hash) (*Connectivity, error)

	// ConnectivityIDs resolves AMChI hashes to connectivity ids, position by
	// position. Missing hashes resolve to 0.
	ConnectivityIDs(ctx context.Context, amchiHashes []string) ([]int64, error)

	// Create inserts a connectivity with its estate and isomers in one
	// transaction, serialised on the connectivity hash. When a row with the
	// same hash already exists nothing is written and created is false.
	Create(ctx context.Context, rows *Rows) (connID int64, created bool, err error)

	// Isomers returns every isomer of a connectivity across all estates.
	Isomers(ctx context.Context, connID int64) ([]*Isomer, error)

	// Get returns one isomer row.
	Get(ctx context.Context, id int64) (*Species, error)

	// UpdateGeometry replaces the geometry of one isomer.
	UpdateGeometry(ctx context.Context, id int64, xyz string) error

	// Delete removes a connectivity, its estates and isomers, and every
	// reaction connectivity naming it as a participant. Returns a NotFound
	// error when the connectivity did not exist.
	Delete(ctx context.Context, connID int64) error
}
