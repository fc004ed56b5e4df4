package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/domain/species"
	"github.com/turtacn/flame-data/internal/infrastructure/database/postgres"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

const speciesConnColumns = `id, formula, svg_string, conn_smiles, conn_inchi, conn_inchi_hash, conn_amchi, conn_amchi_hash, created_at`

type postgresSpeciesRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresSpeciesRepo returns the species repository.
func NewPostgresSpeciesRepo(conn *postgres.Connection, log logging.Logger) species.Repository {
	return &postgresSpeciesRepo{
		conn:     conn,
		log:      log.Named("species_repo"),
		executor: conn.DB(),
	}
}

func scanSpeciesConnectivity(row scanner) (*species.Connectivity, error) {
	c := &species.Connectivity{}
	err := row.Scan(&c.ID, &c.Formula, &c.SVG, &c.ConnSmiles, &c.ConnInChI, &c.ConnInChIHash,
		&c.ConnAMChI, &c.ConnAMChIHash, &c.CreatedAt)
	return c, err
}

func (r *postgresSpeciesRepo) Search(ctx context.Context, filter identity.FormulaFilter) ([]*species.Connectivity, error) {
	where, args, err := formulaClause("formula", filter)
	if err != nil {
		return nil, err
	}
	r.log.Debug("search species connectivity",
		logging.String("formula", filter.Formula), logging.Bool("partial", filter.Partial))

	rows, err := r.executor.QueryContext(ctx, `SELECT `+speciesConnColumns+` FROM species_connectivity`+where, args...)
	if err != nil {
		return nil, dbError(err, "failed to search species connectivity")
	}
	defer rows.Close()

	var out []*species.Connectivity
	for rows.Next() {
		c, err := scanSpeciesConnectivity(rows)
		if err != nil {
			return nil, dbError(err, "failed to scan species connectivity")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to search species connectivity")
	}
	identity.SortByFormula(out, func(c *species.Connectivity) string { return c.Formula })
	return out, nil
}

func (r *postgresSpeciesRepo) FindConnectivity(ctx context.Context, h identity.Hash) (*species.Connectivity, error) {
	row := r.executor.QueryRowContext(ctx,
		`SELECT `+speciesConnColumns+` FROM species_connectivity WHERE `+h.Column()+` = $1 ORDER BY id LIMIT 1`, h.Value)
	c, err := scanSpeciesConnectivity(row)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeNotFound, "No species connectivity with hash %s was found.", h.Value)
	}
	if err != nil {
		return nil, dbError(err, "failed to look up species connectivity")
	}
	return c, nil
}

func (r *postgresSpeciesRepo) ConnectivityIDs(ctx context.Context, amchiHashes []string) ([]int64, error) {
	out := make([]int64, len(amchiHashes))
	if len(amchiHashes) == 0 {
		return out, nil
	}
	rows, err := r.executor.QueryContext(ctx,
		`SELECT conn_amchi_hash, id FROM species_connectivity WHERE conn_amchi_hash = ANY($1)`, pq.Array(amchiHashes))
	if err != nil {
		return nil, dbError(err, "failed to resolve species connectivity ids")
	}
	defer rows.Close()

	ids := make(map[string]int64, len(amchiHashes))
	for rows.Next() {
		var hash string
		var id int64
		if err := rows.Scan(&hash, &id); err != nil {
			return nil, dbError(err, "failed to scan species connectivity id")
		}
		ids[hash] = id
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to resolve species connectivity ids")
	}
	for i, h := range amchiHashes {
		out[i] = ids[h]
	}
	return out, nil
}

func (r *postgresSpeciesRepo) Create(ctx context.Context, rows *species.Rows) (int64, bool, error) {
	hash := rows.Connectivity.ConnAMChIHash
	var connID int64
	var created bool

	err := withTx(ctx, r.conn, func(tx queryExecutor) error {
		if err := lockKey(ctx, tx, "species:"+hash); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM species_connectivity WHERE conn_amchi_hash = $1`, hash).Scan(&connID)
		if err == nil {
			return nil
		}
		if err != sql.ErrNoRows {
			return dbError(err, "failed to look up species connectivity")
		}

		c := rows.Connectivity
		err = tx.QueryRowContext(ctx, `
			INSERT INTO species_connectivity (
				formula, svg_string, conn_smiles, conn_inchi, conn_inchi_hash, conn_amchi, conn_amchi_hash
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (conn_amchi_hash) DO NOTHING
			RETURNING id`,
			c.Formula, c.SVG, c.ConnSmiles, c.ConnInChI, c.ConnInChIHash, c.ConnAMChI, c.ConnAMChIHash,
		).Scan(&connID)
		if err == sql.ErrNoRows {
			// A writer that skipped the lock inserted the row first.
			return tx.QueryRowContext(ctx,
				`SELECT id FROM species_connectivity WHERE conn_amchi_hash = $1`, hash).Scan(&connID)
		}
		if err != nil {
			return dbError(err, "failed to insert species connectivity")
		}

		var estateID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO species_estate (spin_mult, conn_id) VALUES ($1, $2) RETURNING id`,
			rows.Estate.SpinMult, connID,
		).Scan(&estateID)
		if err != nil {
			return dbError(err, "failed to insert species estate")
		}

		for _, s := range rows.Species {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO species (geometry, smiles, inchi, amchi, amchi_key, estate_id)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				s.Geometry, s.Smiles, s.InChI, s.AMChI, s.AMChIKey, estateID,
			)
			if err != nil {
				return dbError(err, "failed to insert species")
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	r.log.Debug("create species connectivity",
		logging.Int64("conn_id", connID), logging.Bool("created", created), logging.String("hash", hash))
	return connID, created, nil
}

func (r *postgresSpeciesRepo) Isomers(ctx context.Context, connID int64) ([]*species.Isomer, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT species.id, species_connectivity.id, species_estate.id,
			species_connectivity.formula, species_connectivity.svg_string, species_connectivity.conn_smiles,
			species_connectivity.conn_inchi, species_connectivity.conn_amchi, species_estate.spin_mult,
			species.smiles, species.inchi, species.amchi, species.geometry
		FROM species_connectivity
		JOIN species_estate ON species_estate.conn_id = species_connectivity.id
		JOIN species ON species.estate_id = species_estate.id
		WHERE species_connectivity.id = $1
		ORDER BY species.id`, connID)
	if err != nil {
		return nil, dbError(err, "failed to query species isomers")
	}
	defer rows.Close()

	var out []*species.Isomer
	for rows.Next() {
		i := &species.Isomer{}
		if err := rows.Scan(&i.ID, &i.ConnID, &i.EstateID, &i.Formula, &i.SVG, &i.ConnSmiles,
			&i.ConnInChI, &i.ConnAMChI, &i.SpinMult, &i.Smiles, &i.InChI, &i.AMChI, &i.Geometry); err != nil {
			return nil, dbError(err, "failed to scan species isomer")
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to query species isomers")
	}
	return out, nil
}

func (r *postgresSpeciesRepo) Get(ctx context.Context, id int64) (*species.Species, error) {
	s := &species.Species{}
	err := r.executor.QueryRowContext(ctx,
		`SELECT id, estate_id, geometry, smiles, inchi, amchi, amchi_key FROM species WHERE id = $1`, id,
	).Scan(&s.ID, &s.EstateID, &s.Geometry, &s.Smiles, &s.InChI, &s.AMChI, &s.AMChIKey)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(id)
	}
	if err != nil {
		return nil, dbError(err, "failed to get species")
	}
	return s, nil
}

func (r *postgresSpeciesRepo) UpdateGeometry(ctx context.Context, id int64, xyz string) error {
	res, err := r.executor.ExecContext(ctx, `UPDATE species SET geometry = $1 WHERE id = $2`, xyz, id)
	if err != nil {
		return dbError(err, "failed to update species geometry")
	}
	if err := mustAffect(res, errors.NotFound(id)); err != nil {
		return err
	}
	r.log.Debug("update species geometry", logging.Int64("id", id))
	return nil
}

func (r *postgresSpeciesRepo) Delete(ctx context.Context, connID int64) error {
	err := withTx(ctx, r.conn, func(tx queryExecutor) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM reaction_connectivity WHERE $1 = ANY(r_conn_ids) OR $1 = ANY(p_conn_ids)`, connID); err != nil {
			return dbError(err, "failed to delete dependent reaction connectivities")
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM species_connectivity WHERE id = $1`, connID)
		if err != nil {
			return dbError(err, "failed to delete species connectivity")
		}
		return mustAffect(res, errors.NotFound(connID))
	})
	if err != nil {
		return err
	}
	r.log.Debug("delete species connectivity", logging.Int64("conn_id", connID))
	return nil
}
