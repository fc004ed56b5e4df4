// Package collection provides the application service for user collections.
// Every operation is scoped to the acting user: a collection owned by
// somebody else is reported as missing.
package collection

import (
	"context"
	"strings"

	domain "github.com/turtacn/flame-data/internal/domain/collection"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

// Kind selects the species or reaction side of a collection.
type Kind string

const (
	KindSpecies  Kind = "species"
	KindReaction Kind = "reaction"
)

// ParseKind validates a kind path segment.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSpecies, KindReaction:
		return Kind(s), nil
	}
	return "", errors.Newf(errors.ErrCodeBadRequest, "Unknown collection member kind %q", s)
}

// Service defines the collection operations.
type Service interface {
	List(ctx context.Context, userID int64) ([]*domain.Overview, error)
	Create(ctx context.Context, userID int64, name string) (*domain.Collection, error)
	Get(ctx context.Context, userID, id int64) (*domain.Contents, error)
	Delete(ctx context.Context, userID, id int64) error
	// Add puts every instance of the given connectivities into the
	// collection. Adding a reaction also adds its participant species.
	Add(ctx context.Context, userID, id int64, kind Kind, connIDs []int64) error
	// Remove takes the given connectivities out of the collection. Removing
	// a reaction leaves its participant species in place.
	Remove(ctx context.Context, userID, id int64, kind Kind, connIDs []int64) error
	// AddToDefault adds a connectivity to the user's default collection,
	// creating that collection when it does not exist yet.
	AddToDefault(ctx context.Context, userID int64, kind Kind, connID int64) error
	Export(ctx context.Context, userID, id int64) (*ExportResult, error)
}

type serviceImpl struct {
	repo              domain.Repository
	storage           ObjectStorage
	defaultCollection string
	logger            logging.Logger
}

// NewService creates the collection service. storage may be nil, in which
// case Export reports the feature as disabled.
func NewService(repo domain.Repository, storage ObjectStorage, defaultCollection string, logger logging.Logger) Service {
	return &serviceImpl{
		repo:              repo,
		storage:           storage,
		defaultCollection: defaultCollection,
		logger:            logger.Named("collection"),
	}
}

func (s *serviceImpl) owned(ctx context.Context, userID, id int64) (*domain.Collection, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, errors.Newf(errors.ErrCodeCollectionNotFound, "No collection with ID %d was found.", id)
	}
	return c, nil
}

func (s *serviceImpl) List(ctx context.Context, userID int64) ([]*domain.Overview, error) {
	colls, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Overview, 0, len(colls))
	for _, c := range colls {
		sp, err := s.repo.SpeciesSummaries(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		rx, err := s.repo.ReactionSummaries(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &domain.Overview{Collection: *c, Species: sp, Reactions: rx})
	}
	return out, nil
}

func (s *serviceImpl) Create(ctx context.Context, userID int64, name string) (*domain.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New(errors.ErrCodeValidation, "Collection name is required")
	}
	c, err := s.repo.Create(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("collection created", logging.Int64("id", c.ID), logging.Int64("user_id", userID))
	return c, nil
}

func (s *serviceImpl) Get(ctx context.Context, userID, id int64) (*domain.Contents, error) {
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.contents(ctx, c)
}

func (s *serviceImpl) contents(ctx context.Context, c *domain.Collection) (*domain.Contents, error) {
	sp, err := s.repo.SpeciesData(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	rx, err := s.repo.ReactionData(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Contents{Name: c.Name, Species: sp, Reactions: rx}, nil
}

func (s *serviceImpl) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("collection deleted", logging.Int64("id", id), logging.Int64("user_id", userID))
	return nil
}

func (s *serviceImpl) Add(ctx context.Context, userID, id int64, kind Kind, connIDs []int64) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.add(ctx, id, kind, connIDs)
}

func (s *serviceImpl) add(ctx context.Context, id int64, kind Kind, connIDs []int64) error {
	for _, connID := range connIDs {
		var err error
		switch kind {
		case KindSpecies:
			err = s.repo.AddSpeciesConnectivity(ctx, id, connID)
		case KindReaction:
			err = s.repo.AddReactionConnectivity(ctx, id, connID)
		default:
			_, err = ParseKind(string(kind))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *serviceImpl) Remove(ctx context.Context, userID, id int64, kind Kind, connIDs []int64) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	for _, connID := range connIDs {
		var err error
		switch kind {
		case KindSpecies:
			err = s.repo.RemoveSpeciesConnectivity(ctx, id, connID)
		case KindReaction:
			err = s.repo.RemoveReactionConnectivity(ctx, id, connID)
		default:
			_, err = ParseKind(string(kind))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *serviceImpl) AddToDefault(ctx context.Context, userID int64, kind Kind, connID int64) error {
	c, err := s.repo.FindByName(ctx, userID, s.defaultCollection)
	if errors.IsNotFound(err) {
		c, err = s.repo.Create(ctx, userID, s.defaultCollection)
		if errors.IsCode(err, errors.ErrCodeCollectionExists) {
			c, err = s.repo.FindByName(ctx, userID, s.defaultCollection)
		}
	}
	if err != nil {
		return err
	}
	return s.add(ctx, c.ID, kind, []int64{connID})
}
