package repositories

import (
	"context"
	"database/sql"

	"github.com/turtacn/flame-data/internal/domain/user"
	"github.com/turtacn/flame-data/internal/infrastructure/database/postgres"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

type postgresUserRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresUserRepo returns the user repository.
func NewPostgresUserRepo(conn *postgres.Connection, log logging.Logger) user.Repository {
	return &postgresUserRepo{
		conn:     conn,
		log:      log.Named("user_repo"),
		executor: conn.DB(),
	}
}

func (r *postgresUserRepo) Create(ctx context.Context, u *user.User, defaultCollection string) error {
	err := withTx(ctx, r.conn, func(tx queryExecutor) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO users (email, password) VALUES ($1, $2) RETURNING id, created_at`,
			u.Email, u.PasswordHash,
		).Scan(&u.ID, &u.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return errors.Wrap(err, errors.ErrCodeUserAlreadyExists, "A user with this email already exists")
			}
			return dbError(err, "failed to create user")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO collection (name, user_id) VALUES ($1, $2)`, defaultCollection, u.ID); err != nil {
			return dbError(err, "failed to create default collection")
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Debug("create user", logging.Int64("id", u.ID))
	return nil
}

func (r *postgresUserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	row := r.executor.QueryRowContext(ctx, `SELECT id, email, password, created_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *postgresUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	row := r.executor.QueryRowContext(ctx, `SELECT id, email, password, created_at FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func scanUser(row scanner) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, dbError(err, "failed to get user")
	}
	return u, nil
}
