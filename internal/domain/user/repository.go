package user

import "context"

// Repository persists users.
type Repository interface {
	// Create inserts u together with a first collection named
	// defaultCollection, in one transaction. A taken email fails with
	// ErrCodeUserAlreadyExists. u.ID and u.CreatedAt are set on success.
	Create(ctx context.Context, u *User, defaultCollection string) error

	// GetByID returns a user or a NotFound error.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail returns a user including its password hash, or a NotFound
	// error.
	GetByEmail(ctx context.Context, email string) (*User, error)
}
