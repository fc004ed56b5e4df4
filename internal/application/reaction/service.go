// Package reaction provides the application service for reaction
// connectivities. Adding a reaction first makes sure every participant
// species exists, then stores the reaction keyed by its ordered pair of
// reactant and product hashes.
package reaction

import (
	"context"
	"strings"

	speciesapp "github.com/turtacn/flame-data/internal/application/species"
	"github.com/turtacn/flame-data/internal/domain/identity"
	domain "github.com/turtacn/flame-data/internal/domain/reaction"
	kafkainfra "github.com/turtacn/flame-data/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/flame-data/pkg/errors"
)

// SpeciesAdder ensures a species connectivity exists.
type SpeciesAdder interface {
	Add(ctx context.Context, smi string) (*speciesapp.AddResult, error)
}

// SpeciesResolver maps AMChI connectivity hashes to species connectivity ids.
type SpeciesResolver interface {
	ConnectivityIDs(ctx context.Context, amchiHashes []string) ([]int64, error)
}

// Service defines the reaction operations.
type Service interface {
	Search(ctx context.Context, filter identity.FormulaFilter) ([]*domain.Connectivity, error)
	Lookup(ctx context.Context, reactants, products identity.Key) (*domain.Connectivity, error)
	// Add stores a reaction SMILES unless its connectivity is already known.
	// Participant species are added first.
	Add(ctx context.Context, smi string) (*speciesapp.AddResult, error)
	Get(ctx context.Context, connID int64) (*Details, error)
	Delete(ctx context.Context, connID int64) error
	// UpdateTSGeometry normalises and stores a TS geometry. The AMChI is not
	// rechecked because TS geometries are not stored in AMChI atom order.
	UpdateTSGeometry(ctx context.Context, id int64, xyz string) error
}

// Details is a reaction connectivity with its channels.
type Details struct {
	*domain.Connectivity
	Reactions []*domain.Detail `json:"reactions"`
}

type serviceImpl struct {
	repo     domain.Repository
	species  SpeciesAdder
	resolver SpeciesResolver
	oracle   identity.Oracle
	events   speciesapp.EventEmitter
	metrics  *prometheus.AppMetrics
	logger   logging.Logger
}

// NewService creates the reaction service. metrics may be nil.
func NewService(repo domain.Repository, species SpeciesAdder, resolver SpeciesResolver, oracle identity.Oracle,
	events speciesapp.EventEmitter, metrics *prometheus.AppMetrics, logger logging.Logger) Service {
	return &serviceImpl{
		repo:     repo,
		species:  species,
		resolver: resolver,
		oracle:   oracle,
		events:   events,
		metrics:  metrics,
		logger:   logger.Named("reaction"),
	}
}

func (s *serviceImpl) Search(ctx context.Context, filter identity.FormulaFilter) ([]*domain.Connectivity, error) {
	return s.repo.Search(ctx, filter)
}

func (s *serviceImpl) Lookup(ctx context.Context, reactants, products identity.Key) (*domain.Connectivity, error) {
	pair, err := identity.ReactionHashes(ctx, s.oracle, reactants, products)
	if err != nil {
		return nil, err
	}
	return s.repo.FindConnectivity(ctx, pair)
}

func (s *serviceImpl) Add(ctx context.Context, smi string) (*speciesapp.AddResult, error) {
	smi = strings.TrimSpace(smi)
	rxn, err := identity.ParseReactionSmiles(smi)
	if err != nil {
		return nil, err
	}

	for _, p := range rxn.Participants() {
		if _, err := s.species.Add(ctx, p); err != nil {
			return nil, err
		}
	}

	existing, err := s.Lookup(ctx, identity.Smiles(rxn.ReactantSmiles()), identity.Smiles(rxn.ProductSmiles()))
	if err == nil {
		return &speciesapp.AddResult{ConnID: existing.ID}, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	rows, err := domain.BuildRows(ctx, s.oracle, rxn.String())
	if err != nil {
		return nil, err
	}
	if err := s.resolveParticipants(ctx, &rows.Connectivity); err != nil {
		return nil, err
	}

	connID, created, err := s.repo.Create(ctx, rows)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("reaction connectivity created",
			logging.Int64("conn_id", connID),
			logging.String("conn_smiles", rows.Connectivity.ConnSmiles),
			logging.Int("channels", len(rows.Channels)))
		if s.metrics != nil {
			s.metrics.ConnectivityCreated.WithLabelValues("reaction").Inc()
		}
		s.events.Emit(ctx, kafkainfra.TopicReactionConnCreated, connID, kafkainfra.ConnectivityEvent{
			ConnID:     connID,
			Formula:    rows.Connectivity.Formula,
			ConnSmiles: rows.Connectivity.ConnSmiles,
			UserID:     speciesapp.UserIDFromContext(ctx),
		})
	}
	return &speciesapp.AddResult{ConnID: connID, Created: created}, nil
}

// resolveParticipants fills the species connectivity ids of both sides.
// Every participant must already be stored.
func (s *serviceImpl) resolveParticipants(ctx context.Context, c *domain.Connectivity) error {
	resolve := func(hashes, chis []string) ([]int64, error) {
		ids, err := s.resolver.ConnectivityIDs(ctx, hashes)
		if err != nil {
			return nil, err
		}
		for i, id := range ids {
			if id == 0 {
				name := hashes[i]
				if i < len(chis) {
					name = chis[i]
				}
				return nil, errors.Newf(errors.ErrCodePreconditionViolation,
					"Species %s must be added before reaction %s", name, c.ConnSmiles)
			}
		}
		return ids, nil
	}
	var err error
	if c.RConnIDs, err = resolve(c.RConnAMChIHashes, c.RConnAMChIs); err != nil {
		return err
	}
	c.PConnIDs, err = resolve(c.PConnAMChIHashes, c.PConnAMChIs)
	return err
}

func (s *serviceImpl) Get(ctx context.Context, connID int64) (*Details, error) {
	conn, err := s.repo.Get(ctx, connID)
	if err != nil {
		return nil, err
	}
	reactions, err := s.repo.Reactions(ctx, connID)
	if err != nil {
		return nil, err
	}
	return &Details{Connectivity: conn, Reactions: reactions}, nil
}

func (s *serviceImpl) Delete(ctx context.Context, connID int64) error {
	if err := s.repo.Delete(ctx, connID); err != nil {
		return err
	}
	s.logger.Info("reaction connectivity deleted", logging.Int64("conn_id", connID))
	if s.metrics != nil {
		s.metrics.ConnectivityDeleted.WithLabelValues("reaction").Inc()
	}
	s.events.Emit(ctx, kafkainfra.TopicReactionConnDeleted, connID, kafkainfra.ConnectivityEvent{
		ConnID: connID,
		UserID: speciesapp.UserIDFromContext(ctx),
	})
	return nil
}

func (s *serviceImpl) UpdateTSGeometry(ctx context.Context, id int64, xyz string) error {
	if strings.TrimSpace(xyz) == "" {
		return errors.New(errors.ErrCodeValidation, "Geometry is required")
	}
	if _, err := s.repo.GetTS(ctx, id); err != nil {
		return err
	}
	norm, err := domain.NormalizeTSGeometry(ctx, s.oracle, xyz)
	if err != nil {
		return err
	}
	return s.repo.UpdateTSGeometry(ctx, id, norm)
}
