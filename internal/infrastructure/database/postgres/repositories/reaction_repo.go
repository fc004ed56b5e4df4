package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/domain/reaction"
	"github.com/turtacn/flame-data/internal/infrastructure/database/postgres"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

const reactionConnColumns = `reaction_connectivity.id, reaction_connectivity.formula, reaction_connectivity.conn_smiles,
	reaction_connectivity.r_svg_string, reaction_connectivity.p_svg_string,
	reaction_connectivity.r_conn_inchi, reaction_connectivity.p_conn_inchi,
	reaction_connectivity.r_conn_inchi_hash, reaction_connectivity.p_conn_inchi_hash,
	reaction_connectivity.r_conn_amchi, reaction_connectivity.p_conn_amchi,
	reaction_connectivity.r_conn_amchi_hash, reaction_connectivity.p_conn_amchi_hash,
	reaction_connectivity.r_formulas, reaction_connectivity.p_formulas,
	reaction_connectivity.r_conn_inchis, reaction_connectivity.p_conn_inchis,
	reaction_connectivity.r_conn_inchi_hashes, reaction_connectivity.p_conn_inchi_hashes,
	reaction_connectivity.r_conn_amchis, reaction_connectivity.p_conn_amchis,
	reaction_connectivity.r_conn_amchi_hashes, reaction_connectivity.p_conn_amchi_hashes,
	reaction_connectivity.r_conn_ids, reaction_connectivity.p_conn_ids,
	reaction_connectivity.created_at`

type postgresReactionRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresReactionRepo returns the reaction repository.
func NewPostgresReactionRepo(conn *postgres.Connection, log logging.Logger) reaction.Repository {
	return &postgresReactionRepo{
		conn:     conn,
		log:      log.Named("reaction_repo"),
		executor: conn.DB(),
	}
}

// reactionConnDest lists the scan targets matching reactionConnColumns.
func reactionConnDest(c *reaction.Connectivity) []interface{} {
	return []interface{}{
		&c.ID, &c.Formula, &c.ConnSmiles, &c.RSVG, &c.PSVG,
		&c.RConnInChI, &c.PConnInChI, &c.RConnInChIHash, &c.PConnInChIHash,
		&c.RConnAMChI, &c.PConnAMChI, &c.RConnAMChIHash, &c.PConnAMChIHash,
		pq.Array(&c.RFormulas), pq.Array(&c.PFormulas),
		pq.Array(&c.RConnInChIs), pq.Array(&c.PConnInChIs),
		pq.Array(&c.RConnInChIHashes), pq.Array(&c.PConnInChIHashes),
		pq.Array(&c.RConnAMChIs), pq.Array(&c.PConnAMChIs),
		pq.Array(&c.RConnAMChIHashes), pq.Array(&c.PConnAMChIHashes),
		pq.Array(&c.RConnIDs), pq.Array(&c.PConnIDs),
		&c.CreatedAt,
	}
}

func scanReactionConnectivity(row scanner) (*reaction.Connectivity, error) {
	c := &reaction.Connectivity{}
	return c, row.Scan(reactionConnDest(c)...)
}

func (r *postgresReactionRepo) Search(ctx context.Context, filter identity.FormulaFilter) ([]*reaction.Connectivity, error) {
	where, args, err := formulaClause("reaction_connectivity.formula", filter)
	if err != nil {
		return nil, err
	}
	r.log.Debug("search reaction connectivity",
		logging.String("formula", filter.Formula), logging.Bool("partial", filter.Partial))

	rows, err := r.executor.QueryContext(ctx, `SELECT `+reactionConnColumns+` FROM reaction_connectivity`+where, args...)
	if err != nil {
		return nil, dbError(err, "failed to search reaction connectivity")
	}
	defer rows.Close()

	var out []*reaction.Connectivity
	for rows.Next() {
		c, err := scanReactionConnectivity(rows)
		if err != nil {
			return nil, dbError(err, "failed to scan reaction connectivity")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to search reaction connectivity")
	}
	identity.SortByFormula(out, func(c *reaction.Connectivity) string { return c.Formula })
	return out, nil
}

func (r *postgresReactionRepo) FindConnectivity(ctx context.Context, pair identity.HashPair) (*reaction.Connectivity, error) {
	rcol, pcol := "r_conn_inchi_hash", "p_conn_inchi_hash"
	if pair.AMChI {
		rcol, pcol = "r_conn_amchi_hash", "p_conn_amchi_hash"
	}
	row := r.executor.QueryRowContext(ctx,
		`SELECT `+reactionConnColumns+` FROM reaction_connectivity WHERE `+rcol+` = $1 AND `+pcol+` = $2 ORDER BY id LIMIT 1`,
		pair.Reactants, pair.Products)
	c, err := scanReactionConnectivity(row)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeNotFound,
			"No reaction connectivity with hashes %s>>%s was found.", pair.Reactants, pair.Products)
	}
	if err != nil {
		return nil, dbError(err, "failed to look up reaction connectivity")
	}
	return c, nil
}

func (r *postgresReactionRepo) Create(ctx context.Context, rows *reaction.Rows) (int64, bool, error) {
	c := rows.Connectivity
	var connID int64
	var created bool

	err := withTx(ctx, r.conn, func(tx queryExecutor) error {
		if err := lockKey(ctx, tx, "reaction:"+c.RConnAMChIHash+">>"+c.PConnAMChIHash); err != nil {
			return err
		}
		const lookup = `SELECT id FROM reaction_connectivity WHERE r_conn_amchi_hash = $1 AND p_conn_amchi_hash = $2`
		err := tx.QueryRowContext(ctx, lookup, c.RConnAMChIHash, c.PConnAMChIHash).Scan(&connID)
		if err == nil {
			return nil
		}
		if err != sql.ErrNoRows {
			return dbError(err, "failed to look up reaction connectivity")
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO reaction_connectivity (
				formula, conn_smiles, r_svg_string, p_svg_string,
				r_conn_inchi, p_conn_inchi, r_conn_inchi_hash, p_conn_inchi_hash,
				r_conn_amchi, p_conn_amchi, r_conn_amchi_hash, p_conn_amchi_hash,
				r_formulas, p_formulas, r_conn_inchis, p_conn_inchis,
				r_conn_inchi_hashes, p_conn_inchi_hashes, r_conn_amchis, p_conn_amchis,
				r_conn_amchi_hashes, p_conn_amchi_hashes, r_conn_ids, p_conn_ids
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
				$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
			ON CONFLICT (r_conn_amchi_hash, p_conn_amchi_hash) DO NOTHING
			RETURNING id`,
			c.Formula, c.ConnSmiles, c.RSVG, c.PSVG,
			c.RConnInChI, c.PConnInChI, c.RConnInChIHash, c.PConnInChIHash,
			c.RConnAMChI, c.PConnAMChI, c.RConnAMChIHash, c.PConnAMChIHash,
			pq.Array(c.RFormulas), pq.Array(c.PFormulas), pq.Array(c.RConnInChIs), pq.Array(c.PConnInChIs),
			pq.Array(c.RConnInChIHashes), pq.Array(c.PConnInChIHashes), pq.Array(c.RConnAMChIs), pq.Array(c.PConnAMChIs),
			pq.Array(c.RConnAMChIHashes), pq.Array(c.PConnAMChIHashes), pq.Array(c.RConnIDs), pq.Array(c.PConnIDs),
		).Scan(&connID)
		if err == sql.ErrNoRows {
			return tx.QueryRowContext(ctx, lookup, c.RConnAMChIHash, c.PConnAMChIHash).Scan(&connID)
		}
		if err != nil {
			return dbError(err, "failed to insert reaction connectivity")
		}

		for _, ch := range rows.Channels {
			if err := r.insertChannel(ctx, tx, connID, rows.Estate.SpinMult, ch); err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	r.log.Debug("create reaction connectivity",
		logging.Int64("conn_id", connID), logging.Bool("created", created), logging.Int("channels", len(rows.Channels)))
	return connID, created, nil
}

// insertChannel writes one reaction with its estate, transition states and
// links to the exact participant isomers.
func (r *postgresReactionRepo) insertChannel(ctx context.Context, tx queryExecutor, connID int64, spinMult int, ch reaction.Channel) error {
	rx := ch.Reaction
	var reactionID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO reaction (
			smiles, r_amchi, p_amchi, r_amchi_key, p_amchi_key, r_inchis, p_inchis,
			r_amchis, p_amchis, r_amchi_keys, p_amchi_keys, conn_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		rx.Smiles, rx.RAMChI, rx.PAMChI, rx.RAMChIKey, rx.PAMChIKey,
		pq.Array(rx.RInChIs), pq.Array(rx.PInChIs), pq.Array(rx.RAMChIs), pq.Array(rx.PAMChIs),
		pq.Array(rx.RAMChIKeys), pq.Array(rx.PAMChIKeys), connID,
	).Scan(&reactionID)
	if err != nil {
		return dbError(err, "failed to insert reaction")
	}

	var estateID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO reaction_estate (spin_mult, reaction_id) VALUES ($1, $2) RETURNING id`,
		spinMult, reactionID,
	).Scan(&estateID)
	if err != nil {
		return dbError(err, "failed to insert reaction estate")
	}

	for _, ts := range ch.TSs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reaction_ts (geometry, class, amchi, amchi_key, estate_id)
			VALUES ($1, $2, $3, $4, $5)`,
			ts.Geometry, ts.Class, ts.AMChI, ts.AMChIKey, estateID,
		)
		if err != nil {
			return dbError(err, "failed to insert reaction transition state")
		}
	}

	links := []struct {
		table string
		keys  []string
	}{
		{"reaction_reactants", rx.RAMChIKeys},
		{"reaction_products", rx.PAMChIKeys},
	}
	for _, l := range links {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO `+l.table+` (reaction_id, species_id)
			SELECT $1, id FROM species WHERE amchi_key = ANY($2)
			ON CONFLICT DO NOTHING`,
			reactionID, pq.Array(l.keys),
		)
		if err != nil {
			return dbError(err, "failed to link reaction participants")
		}
	}
	return nil
}

func (r *postgresReactionRepo) Get(ctx context.Context, connID int64) (*reaction.Connectivity, error) {
	row := r.executor.QueryRowContext(ctx,
		`SELECT `+reactionConnColumns+` FROM reaction_connectivity WHERE id = $1`, connID)
	c, err := scanReactionConnectivity(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(connID)
	}
	if err != nil {
		return nil, dbError(err, "failed to get reaction connectivity")
	}
	return c, nil
}

func (r *postgresReactionRepo) Reactions(ctx context.Context, connID int64) ([]*reaction.Detail, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT reaction.id, reaction.conn_id, reaction.smiles,
			reaction.r_amchi, reaction.p_amchi, reaction.r_amchi_key, reaction.p_amchi_key,
			reaction.r_inchis, reaction.p_inchis, reaction.r_amchis, reaction.p_amchis,
			reaction.r_amchi_keys, reaction.p_amchi_keys,
			reaction_connectivity.formula, reaction_connectivity.conn_smiles,
			reaction_connectivity.r_conn_ids, reaction_connectivity.p_conn_ids,
			MAX(reaction_estate.spin_mult),
			ARRAY_AGG(reaction_ts.id ORDER BY reaction_ts.id),
			ARRAY_AGG(reaction_ts.geometry ORDER BY reaction_ts.id),
			ARRAY_AGG(reaction_ts.class ORDER BY reaction_ts.id),
			ARRAY_AGG(reaction_ts.amchi ORDER BY reaction_ts.id),
			ARRAY_AGG(reaction_ts.amchi_key ORDER BY reaction_ts.id)
		FROM reaction_connectivity
		JOIN reaction ON reaction.conn_id = reaction_connectivity.id
		JOIN reaction_estate ON reaction_estate.reaction_id = reaction.id
		JOIN reaction_ts ON reaction_ts.estate_id = reaction_estate.id
		WHERE reaction_connectivity.id = $1
		GROUP BY reaction.id, reaction_connectivity.id
		ORDER BY reaction.id`, connID)
	if err != nil {
		return nil, dbError(err, "failed to query reactions")
	}
	defer rows.Close()

	var out []*reaction.Detail
	for rows.Next() {
		d := &reaction.Detail{}
		err := rows.Scan(&d.ID, &d.ConnID, &d.Smiles,
			&d.RAMChI, &d.PAMChI, &d.RAMChIKey, &d.PAMChIKey,
			pq.Array(&d.RInChIs), pq.Array(&d.PInChIs), pq.Array(&d.RAMChIs), pq.Array(&d.PAMChIs),
			pq.Array(&d.RAMChIKeys), pq.Array(&d.PAMChIKeys),
			&d.Formula, &d.ConnSmiles, pq.Array(&d.RConnIDs), pq.Array(&d.PConnIDs),
			&d.SpinMult,
			pq.Array(&d.TSIDs), pq.Array(&d.Geometries), pq.Array(&d.Classes),
			pq.Array(&d.AMChIs), pq.Array(&d.AMChIKeys),
		)
		if err != nil {
			return nil, dbError(err, "failed to scan reaction")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to query reactions")
	}
	return out, nil
}

func (r *postgresReactionRepo) GetTS(ctx context.Context, id int64) (*reaction.TS, error) {
	ts := &reaction.TS{}
	err := r.executor.QueryRowContext(ctx,
		`SELECT id, estate_id, geometry, class, amchi, amchi_key FROM reaction_ts WHERE id = $1`, id,
	).Scan(&ts.ID, &ts.EstateID, &ts.Geometry, &ts.Class, &ts.AMChI, &ts.AMChIKey)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(id)
	}
	if err != nil {
		return nil, dbError(err, "failed to get transition state")
	}
	return ts, nil
}

func (r *postgresReactionRepo) UpdateTSGeometry(ctx context.Context, id int64, xyz string) error {
	res, err := r.executor.ExecContext(ctx, `UPDATE reaction_ts SET geometry = $1 WHERE id = $2`, xyz, id)
	if err != nil {
		return dbError(err, "failed to update transition state geometry")
	}
	if err := mustAffect(res, errors.NotFound(id)); err != nil {
		return err
	}
	r.log.Debug("update transition state geometry", logging.Int64("id", id))
	return nil
}

func (r *postgresReactionRepo) Delete(ctx context.Context, connID int64) error {
	res, err := r.executor.ExecContext(ctx, `DELETE FROM reaction_connectivity WHERE id = $1`, connID)
	if err != nil {
		return dbError(err, "failed to delete reaction connectivity")
	}
	if err := mustAffect(res, errors.NotFound(connID)); err != nil {
		return err
	}
	r.log.Debug("delete reaction connectivity", logging.Int64("conn_id", connID))
	return nil
}
