// Package species provides the application service for species
// connectivities. It sits between the HTTP/CLI interfaces and the species
// domain: SMILES are normalised through the oracle, deduplicated by
// connectivity hash and stored with their estates and isomers.
package species

import (
	"context"
	"net/http"
	"strings"

	domain "github.com/turtacn/flame-data/internal/domain/species"
	"github.com/turtacn/flame-data/internal/domain/identity"
	kafkainfra "github.com/turtacn/flame-data/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/flame-data/pkg/errors"
)

// EventEmitter publishes connectivity lifecycle events. Failures are the
// emitter's concern.
type EventEmitter interface {
	Emit(ctx context.Context, topic string, connID int64, payload interface{})
}

// Service defines the species operations.
type Service interface {
	Search(ctx context.Context, filter identity.FormulaFilter) ([]*domain.Connectivity, error)
	Hash(ctx context.Context, key identity.Key) (identity.Hash, error)
	Lookup(ctx context.Context, key identity.Key) (*domain.Connectivity, error)
	// Add stores smi unless its connectivity is already known. Repeating the
	// call returns the same connectivity id with Created false.
	Add(ctx context.Context, smi string) (*AddResult, error)
	// AddBatch adds every SMILES independently; one failure never stops the
	// rest.
	AddBatch(ctx context.Context, smiles []string) []*ItemResult
	Get(ctx context.Context, connID int64) ([]*domain.Isomer, error)
	Delete(ctx context.Context, connID int64) error
	UpdateGeometry(ctx context.Context, id int64, xyz string) error
}

// AddResult reports the connectivity a SMILES resolved to.
type AddResult struct {
	ConnID  int64 `json:"conn_id"`
	Created bool  `json:"created"`
}

// ItemResult is the outcome of one batch entry.
type ItemResult struct {
	Smiles  string `json:"smiles"`
	ConnID  int64  `json:"conn_id,omitempty"`
	Created bool   `json:"created,omitempty"`
	Status  int    `json:"status"`
	Error   string `json:"error,omitempty"`
}

type serviceImpl struct {
	repo    domain.Repository
	oracle  identity.Oracle
	events  EventEmitter
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

// NewService creates the species service. metrics may be nil.
func NewService(repo domain.Repository, oracle identity.Oracle, events EventEmitter, metrics *prometheus.AppMetrics, logger logging.Logger) Service {
	return &serviceImpl{
		repo:    repo,
		oracle:  oracle,
		events:  events,
		metrics: metrics,
		logger:  logger.Named("species"),
	}
}

func (s *serviceImpl) Search(ctx context.Context, filter identity.FormulaFilter) ([]*domain.Connectivity, error) {
	return s.repo.Search(ctx, filter)
}

func (s *serviceImpl) Hash(ctx context.Context, key identity.Key) (identity.Hash, error) {
	return identity.ConnectivityHash(ctx, s.oracle, key)
}

func (s *serviceImpl) Lookup(ctx context.Context, key identity.Key) (*domain.Connectivity, error) {
	h, err := s.Hash(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.repo.FindConnectivity(ctx, h)
}

func (s *serviceImpl) Add(ctx context.Context, smi string) (*AddResult, error) {
	smi = strings.TrimSpace(smi)
	if smi == "" {
		return nil, errors.New(errors.ErrCodeValidation, "SMILES is required")
	}
	if identity.IsReactionSmiles(smi) {
		return nil, errors.Newf(errors.ErrCodeMalformedIdentifier, "%s is a reaction, not a species", smi)
	}

	existing, err := s.Lookup(ctx, identity.Smiles(smi))
	if err == nil {
		return &AddResult{ConnID: existing.ID}, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	rows, err := domain.BuildRows(ctx, s.oracle, smi)
	if err != nil {
		return nil, err
	}
	connID, created, err := s.repo.Create(ctx, rows)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("species connectivity created",
			logging.Int64("conn_id", connID),
			logging.String("formula", rows.Connectivity.Formula),
			logging.Int("isomers", len(rows.Species)))
		if s.metrics != nil {
			s.metrics.ConnectivityCreated.WithLabelValues("species").Inc()
		}
		s.events.Emit(ctx, kafkainfra.TopicSpeciesConnCreated, connID, kafkainfra.ConnectivityEvent{
			ConnID:     connID,
			Formula:    rows.Connectivity.Formula,
			ConnSmiles: rows.Connectivity.ConnSmiles,
			UserID:     UserIDFromContext(ctx),
		})
	}
	return &AddResult{ConnID: connID, Created: created}, nil
}

func (s *serviceImpl) AddBatch(ctx context.Context, smiles []string) []*ItemResult {
	results := make([]*ItemResult, 0, len(smiles))
	for _, smi := range smiles {
		item := &ItemResult{Smiles: smi}
		res, err := s.Add(ctx, smi)
		if err != nil {
			item.Status = errors.HTTPStatus(err)
			item.Error = errors.PublicMessage(err)
			s.logger.Warn("batch item failed", logging.String("smiles", smi), logging.Err(err))
		} else {
			item.ConnID = res.ConnID
			item.Created = res.Created
			item.Status = http.StatusCreated
			if !res.Created {
				item.Status = http.StatusOK
			}
		}
		results = append(results, item)
	}
	return results
}

func (s *serviceImpl) Get(ctx context.Context, connID int64) ([]*domain.Isomer, error) {
	isos, err := s.repo.Isomers(ctx, connID)
	if err != nil {
		return nil, err
	}
	if len(isos) == 0 {
		return nil, errors.NotFound(connID)
	}
	return isos, nil
}

// Delete removes the connectivity and every reaction naming it.
func (s *serviceImpl) Delete(ctx context.Context, connID int64) error {
	if err := s.repo.Delete(ctx, connID); err != nil {
		return err
	}
	s.logger.Info("species connectivity deleted", logging.Int64("conn_id", connID))
	if s.metrics != nil {
		s.metrics.ConnectivityDeleted.WithLabelValues("species").Inc()
	}
	s.events.Emit(ctx, kafkainfra.TopicSpeciesConnDeleted, connID, kafkainfra.ConnectivityEvent{
		ConnID: connID,
		UserID: UserIDFromContext(ctx),
	})
	return nil
}

// UpdateGeometry replaces an isomer geometry after checking that it still
// describes the stored AMChI.
func (s *serviceImpl) UpdateGeometry(ctx context.Context, id int64, xyz string) error {
	if strings.TrimSpace(xyz) == "" {
		return errors.New(errors.ErrCodeValidation, "Geometry is required")
	}
	sp, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	norm, err := domain.ValidateGeometry(ctx, s.oracle, sp.AMChI, xyz)
	if err != nil {
		return err
	}
	return s.repo.UpdateGeometry(ctx, id, norm)
}

type userIDKey struct{}

// WithUserID attaches the acting user to ctx for event attribution.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the acting user, or 0.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey{}).(int64)
	return id
}
