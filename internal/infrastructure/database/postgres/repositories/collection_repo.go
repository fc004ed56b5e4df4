package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/turtacn/flame-data/internal/domain/collection"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/infrastructure/database/postgres"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

// speciesOfConn selects every isomer id of species connectivity $2.
const speciesOfConn = `
	SELECT species.id FROM species
	JOIN species_estate ON species.estate_id = species_estate.id
	WHERE species_estate.conn_id = $2`

type postgresCollectionRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresCollectionRepo returns the collection repository.
func NewPostgresCollectionRepo(conn *postgres.Connection, log logging.Logger) collection.Repository {
	return &postgresCollectionRepo{
		conn:     conn,
		log:      log.Named("collection_repo"),
		executor: conn.DB(),
	}
}

func collectionNotFound(id int64) error {
	return errors.Newf(errors.ErrCodeCollectionNotFound, "No collection with ID %d was found.", id)
}

func (r *postgresCollectionRepo) Create(ctx context.Context, userID int64, name string) (*collection.Collection, error) {
	c := &collection.Collection{UserID: userID, Name: name}
	err := r.executor.QueryRowContext(ctx,
		`INSERT INTO collection (name, user_id) VALUES ($1, $2) RETURNING id`, name, userID,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrap(err, errors.ErrCodeCollectionExists,
				"A collection named "+name+" already exists")
		}
		return nil, dbError(err, "failed to create collection")
	}
	r.log.Debug("create collection", logging.Int64("id", c.ID), logging.Int64("user_id", userID))
	return c, nil
}

func (r *postgresCollectionRepo) FindByName(ctx context.Context, userID int64, name string) (*collection.Collection, error) {
	c := &collection.Collection{}
	err := r.executor.QueryRowContext(ctx,
		`SELECT id, name, user_id FROM collection WHERE user_id = $1 AND name = $2`, userID, name,
	).Scan(&c.ID, &c.Name, &c.UserID)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeCollectionNotFound, "No collection named %s was found.", name)
	}
	if err != nil {
		return nil, dbError(err, "failed to look up collection")
	}
	return c, nil
}

func (r *postgresCollectionRepo) Get(ctx context.Context, id int64) (*collection.Collection, error) {
	c := &collection.Collection{}
	err := r.executor.QueryRowContext(ctx,
		`SELECT id, name, user_id FROM collection WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.UserID)
	if err == sql.ErrNoRows {
		return nil, collectionNotFound(id)
	}
	if err != nil {
		return nil, dbError(err, "failed to get collection")
	}
	return c, nil
}

func (r *postgresCollectionRepo) ListByUser(ctx context.Context, userID int64) ([]*collection.Collection, error) {
	rows, err := r.executor.QueryContext(ctx,
		`SELECT id, name, user_id FROM collection WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, dbError(err, "failed to list collections")
	}
	defer rows.Close()

	var out []*collection.Collection
	for rows.Next() {
		c := &collection.Collection{}
		if err := rows.Scan(&c.ID, &c.Name, &c.UserID); err != nil {
			return nil, dbError(err, "failed to scan collection")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to list collections")
	}
	return out, nil
}

func (r *postgresCollectionRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.executor.ExecContext(ctx, `DELETE FROM collection WHERE id = $1`, id)
	if err != nil {
		return dbError(err, "failed to delete collection")
	}
	if err := mustAffect(res, collectionNotFound(id)); err != nil {
		return err
	}
	r.log.Debug("delete collection", logging.Int64("id", id))
	return nil
}

func (r *postgresCollectionRepo) AddSpeciesConnectivity(ctx context.Context, collID, connID int64) error {
	_, err := r.executor.ExecContext(ctx,
		`INSERT INTO collection_species (coll_id, species_id) SELECT $1, isomer.id FROM (`+speciesOfConn+`) AS isomer
		ON CONFLICT DO NOTHING`, collID, connID)
	if err != nil {
		return dbError(err, "failed to add species to collection")
	}
	r.log.Debug("add species connectivity to collection", logging.Int64("coll_id", collID), logging.Int64("conn_id", connID))
	return nil
}

func (r *postgresCollectionRepo) RemoveSpeciesConnectivity(ctx context.Context, collID, connID int64) error {
	_, err := r.executor.ExecContext(ctx,
		`DELETE FROM collection_species WHERE coll_id = $1 AND species_id IN (`+speciesOfConn+`)`, collID, connID)
	if err != nil {
		return dbError(err, "failed to remove species from collection")
	}
	r.log.Debug("remove species connectivity from collection", logging.Int64("coll_id", collID), logging.Int64("conn_id", connID))
	return nil
}

// AddReactionConnectivity also adds every isomer of each participant species
// connectivity. Removal does not mirror this: participants may be shared
// with other reactions in the collection.
func (r *postgresCollectionRepo) AddReactionConnectivity(ctx context.Context, collID, connID int64) error {
	err := withTx(ctx, r.conn, func(tx queryExecutor) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO collection_species (coll_id, species_id)
			SELECT $1, species.id FROM reaction_connectivity
			JOIN species_estate ON species_estate.conn_id = ANY(reaction_connectivity.r_conn_ids || reaction_connectivity.p_conn_ids)
			JOIN species ON species.estate_id = species_estate.id
			WHERE reaction_connectivity.id = $2
			ON CONFLICT DO NOTHING`, collID, connID)
		if err != nil {
			return dbError(err, "failed to add reaction participants to collection")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO collection_reactions (coll_id, reaction_id)
			SELECT $1, id FROM reaction WHERE conn_id = $2
			ON CONFLICT DO NOTHING`, collID, connID)
		if err != nil {
			return dbError(err, "failed to add reactions to collection")
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Debug("add reaction connectivity to collection", logging.Int64("coll_id", collID), logging.Int64("conn_id", connID))
	return nil
}

func (r *postgresCollectionRepo) RemoveReactionConnectivity(ctx context.Context, collID, connID int64) error {
	_, err := r.executor.ExecContext(ctx, `
		DELETE FROM collection_reactions
		WHERE coll_id = $1 AND reaction_id IN (SELECT id FROM reaction WHERE conn_id = $2)`, collID, connID)
	if err != nil {
		return dbError(err, "failed to remove reactions from collection")
	}
	r.log.Debug("remove reaction connectivity from collection", logging.Int64("coll_id", collID), logging.Int64("conn_id", connID))
	return nil
}

func (r *postgresCollectionRepo) SpeciesSummaries(ctx context.Context, collID int64) ([]*collection.SpeciesSummary, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT species_connectivity.id, species_connectivity.formula, species_connectivity.svg_string,
			species_connectivity.conn_smiles, species_connectivity.conn_inchi, species_connectivity.conn_inchi_hash,
			species_connectivity.conn_amchi, species_connectivity.conn_amchi_hash, species_connectivity.created_at,
			ARRAY_AGG(species.id ORDER BY species.id)
		FROM collection_species
		JOIN species ON collection_species.species_id = species.id
		JOIN species_estate ON species.estate_id = species_estate.id
		JOIN species_connectivity ON species_estate.conn_id = species_connectivity.id
		WHERE collection_species.coll_id = $1
		GROUP BY species_connectivity.id`, collID)
	if err != nil {
		return nil, dbError(err, "failed to query collection species")
	}
	defer rows.Close()

	var out []*collection.SpeciesSummary
	for rows.Next() {
		s := &collection.SpeciesSummary{}
		c := &s.Connectivity
		if err := rows.Scan(&c.ID, &c.Formula, &c.SVG, &c.ConnSmiles, &c.ConnInChI, &c.ConnInChIHash,
			&c.ConnAMChI, &c.ConnAMChIHash, &c.CreatedAt, pq.Array(&s.SpeciesIDs)); err != nil {
			return nil, dbError(err, "failed to scan collection species")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to query collection species")
	}
	identity.SortByFormula(out, func(s *collection.SpeciesSummary) string { return s.Formula })
	return out, nil
}

func (r *postgresCollectionRepo) ReactionSummaries(ctx context.Context, collID int64) ([]*collection.ReactionSummary, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT `+reactionConnColumns+`,
			ARRAY_AGG(reaction.id ORDER BY reaction.id)
		FROM collection_reactions
		JOIN reaction ON collection_reactions.reaction_id = reaction.id
		JOIN reaction_connectivity ON reaction.conn_id = reaction_connectivity.id
		WHERE collection_reactions.coll_id = $1
		GROUP BY reaction_connectivity.id`, collID)
	if err != nil {
		return nil, dbError(err, "failed to query collection reactions")
	}
	defer rows.Close()

	var out []*collection.ReactionSummary
	for rows.Next() {
		s := &collection.ReactionSummary{}
		dest := append(reactionConnDest(&s.Connectivity), pq.Array(&s.ReactionIDs))
		if err := rows.Scan(dest...); err != nil {
			return nil, dbError(err, "failed to scan collection reaction")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to query collection reactions")
	}
	identity.SortByFormula(out, func(s *collection.ReactionSummary) string { return s.Formula })
	return out, nil
}

func (r *postgresCollectionRepo) SpeciesData(ctx context.Context, collID int64) ([]*collection.SpeciesData, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT species_connectivity.formula, species_connectivity.conn_smiles, species_estate.spin_mult,
			species.smiles, species.inchi, species.amchi, species.geometry
		FROM collection_species
		JOIN species ON collection_species.species_id = species.id
		JOIN species_estate ON species.estate_id = species_estate.id
		JOIN species_connectivity ON species_estate.conn_id = species_connectivity.id
		WHERE collection_species.coll_id = $1
		ORDER BY species.id`, collID)
	if err != nil {
		return nil, dbError(err, "failed to query collection species data")
	}
	defer rows.Close()

	var out []*collection.SpeciesData
	for rows.Next() {
		d := &collection.SpeciesData{}
		if err := rows.Scan(&d.Formula, &d.ConnSmiles, &d.SpinMult, &d.Smiles, &d.InChI, &d.AMChI, &d.Geometry); err != nil {
			return nil, dbError(err, "failed to scan collection species data")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to query collection species data")
	}
	identity.SortByFormula(out, func(d *collection.SpeciesData) string { return d.Formula })
	return out, nil
}

// participantData selects per-reaction participant details through the
// given link table.
func participantData(table string) string {
	return `
		SELECT reaction.id,
			ARRAY_AGG(species_estate.spin_mult ORDER BY species.id),
			ARRAY_AGG(species.inchi ORDER BY species.id),
			ARRAY_AGG(species.amchi ORDER BY species.id)
		FROM collection_reactions
		JOIN reaction ON collection_reactions.reaction_id = reaction.id
		JOIN ` + table + ` ON ` + table + `.reaction_id = reaction.id
		JOIN species ON ` + table + `.species_id = species.id
		JOIN species_estate ON species.estate_id = species_estate.id
		WHERE collection_reactions.coll_id = $1
		GROUP BY reaction.id`
}

func (r *postgresCollectionRepo) ReactionData(ctx context.Context, collID int64) ([]*collection.ReactionData, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT reaction.id, reaction_connectivity.formula, reaction_connectivity.conn_smiles, reaction.smiles,
			MAX(reaction_estate.spin_mult),
			ARRAY_AGG(reaction_ts.geometry ORDER BY reaction_ts.id),
			ARRAY_AGG(reaction_ts.class ORDER BY reaction_ts.id),
			ARRAY_AGG(reaction_ts.amchi ORDER BY reaction_ts.id)
		FROM collection_reactions
		JOIN reaction ON collection_reactions.reaction_id = reaction.id
		JOIN reaction_connectivity ON reaction.conn_id = reaction_connectivity.id
		JOIN reaction_estate ON reaction_estate.reaction_id = reaction.id
		JOIN reaction_ts ON reaction_ts.estate_id = reaction_estate.id
		WHERE collection_reactions.coll_id = $1
		GROUP BY reaction.id, reaction_connectivity.id
		ORDER BY reaction.id`, collID)
	if err != nil {
		return nil, dbError(err, "failed to query collection reaction data")
	}
	defer rows.Close()

	var out []*collection.ReactionData
	byID := map[int64]*collection.ReactionData{}
	for rows.Next() {
		d := &collection.ReactionData{}
		var geos, classes, amchis []string
		if err := rows.Scan(&d.ID, &d.Formula, &d.ConnSmiles, &d.Smiles, &d.SpinMult,
			pq.Array(&geos), pq.Array(&classes), pq.Array(&amchis)); err != nil {
			return nil, dbError(err, "failed to scan collection reaction data")
		}
		for i := range geos {
			ts := collection.TransitionState{Geometry: geos[i]}
			if i < len(classes) {
				ts.Class = classes[i]
			}
			if i < len(amchis) {
				ts.AMChI = amchis[i]
			}
			d.TransitionStates = append(d.TransitionStates, ts)
		}
		out = append(out, d)
		byID[d.ID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to query collection reaction data")
	}
	rows.Close()

	for _, side := range []struct {
		table     string
		reactants bool
	}{{"reaction_reactants", true}, {"reaction_products", false}} {
		if err := r.scanParticipants(ctx, collID, side.table, byID, side.reactants); err != nil {
			return nil, err
		}
	}
	identity.SortByFormula(out, func(d *collection.ReactionData) string { return d.Formula })
	return out, nil
}

func (r *postgresCollectionRepo) scanParticipants(ctx context.Context, collID int64, table string,
	byID map[int64]*collection.ReactionData, reactants bool) error {
	rows, err := r.executor.QueryContext(ctx, participantData(table), collID)
	if err != nil {
		return dbError(err, "failed to query reaction participants")
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var mults []int64
		var inchis, amchis []string
		if err := rows.Scan(&id, pq.Array(&mults), pq.Array(&inchis), pq.Array(&amchis)); err != nil {
			return dbError(err, "failed to scan reaction participants")
		}
		d, ok := byID[id]
		if !ok {
			continue
		}
		if reactants {
			d.RSpinMults, d.RInChIs, d.RAMChIs = mults, inchis, amchis
		} else {
			d.PSpinMults, d.PInChIs, d.PAMChIs = mults, inchis, amchis
		}
	}
	if err := rows.Err(); err != nil {
		return dbError(err, "failed to query reaction participants")
	}
	return nil
}
