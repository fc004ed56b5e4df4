package collection

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	domain "github.com/turtacn/flame-data/internal/domain/collection"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

// ObjectStorage stores export bundles and hands out download links.
type ObjectStorage interface {
	Upload(ctx context.Context, objectName string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, objectName string) (string, error)
	Remove(ctx context.Context, objectName string) error
}

// ExportResult locates an uploaded bundle.
type ExportResult struct {
	Object string `json:"object"`
	URL    string `json:"url"`
}

type manifest struct {
	Collection int64            `json:"collection_id"`
	CreatedAt  time.Time        `json:"created_at"`
	Contents   *domain.Contents `json:"contents"`
	Files      []string         `json:"files"`
}

// Export bundles the collection as a zip of manifest.json plus one xyz file
// per isomer and transition state, uploads it and returns a presigned link.
func (s *serviceImpl) Export(ctx context.Context, userID, id int64) (*ExportResult, error) {
	if s.storage == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "Export storage is not configured")
	}
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	contents, err := s.contents(ctx, c)
	if err != nil {
		return nil, err
	}

	data, err := buildBundle(c.ID, contents, time.Now().UTC())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to build export bundle")
	}

	object := fmt.Sprintf("collections/%d/%s.zip", c.ID, uuid.NewString())
	if err := s.storage.Upload(ctx, object, data, "application/zip"); err != nil {
		return nil, err
	}
	url, err := s.storage.PresignedURL(ctx, object)
	if err != nil {
		// an unreachable bundle is useless, drop it
		if rmErr := s.storage.Remove(ctx, object); rmErr != nil {
			s.logger.Warn("failed to remove orphaned export",
				logging.String("object", object), logging.Err(rmErr))
		}
		return nil, err
	}
	s.logger.Info("collection exported",
		logging.Int64("id", c.ID), logging.String("object", object), logging.Int("bytes", len(data)))
	return &ExportResult{Object: object, URL: url}, nil
}

func buildBundle(collID int64, contents *domain.Contents, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	m := manifest{Collection: collID, CreatedAt: now, Contents: contents}
	write := func(name, body string) error {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: now})
		if err != nil {
			return err
		}
		_, err = w.Write([]byte(body))
		return err
	}

	for i, sp := range contents.Species {
		name := fmt.Sprintf("species/%03d_%s.xyz", i+1, sp.Formula)
		if err := write(name, xyzBlock(sp.Geometry)); err != nil {
			return nil, err
		}
		m.Files = append(m.Files, name)
	}
	for i, rx := range contents.Reactions {
		for j, ts := range rx.TransitionStates {
			name := fmt.Sprintf("reactions/%03d_%s_ts%d.xyz", i+1, rx.Formula, j+1)
			if err := write(name, xyzBlock(ts.Geometry)); err != nil {
				return nil, err
			}
			m.Files = append(m.Files, name)
		}
	}

	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := write("manifest.json", string(body)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xyzBlock(geo string) string {
	return strings.TrimRight(geo, "\n") + "\n"
}
