// Package docsync stores each user's uploaded journal document. The server
// keeps whatever arrived last; reconciling versions is the client's job.
package docsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"reign/internal/journal"
	"reign/internal/logging"
)

var ErrInvalidDocument = errors.New("invalid document")

// Enqueuer is told after a new revision lands.
type Enqueuer interface {
	EnqueueDocumentSynced(ctx context.Context, userID uint64) error
}

type Service struct {
	Repo   Repository
	Jobs   Enqueuer
	Logger *zap.Logger
}

func (s *Service) log() *zap.Logger { return logging.OrNop(s.Logger).Named("docsync") }

// Upload stores env.AppData as the user's current document.
func (s *Service) Upload(ctx context.Context, userID uint64, env journal.SyncEnvelope, idemKey *string) (Revision, error) {
	if env.AppData == nil {
		return Revision{}, ErrInvalidDocument
	}
	payload, err := json.Marshal(env.AppData)
	if err != nil {
		return Revision{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	rev, dup, err := s.Repo.Save(ctx, SaveInput{
		UserID:         userID,
		Payload:        payload,
		LocalTimestamp: env.LocalTimestamp,
		DocUpdatedAt:   env.AppData.LastUpdated,
		IdemKey:        idemKey,
	})
	if err != nil {
		return Revision{}, fmt.Errorf("save revision: %w", err)
	}
	if dup {
		s.log().Debug("duplicate upload ignored", zap.Uint64("user", userID), zap.Uint64("revision", rev.ID))
		return rev, nil
	}

	if s.Jobs != nil {
		if err := s.Jobs.EnqueueDocumentSynced(ctx, userID); err != nil {
			s.log().Warn("enqueue stats refresh failed", zap.Uint64("user", userID), zap.Error(err))
		}
	}
	return rev, nil
}

// Download returns the user's current document, or an empty response when
// nothing was uploaded yet.
func (s *Service) Download(ctx context.Context, userID uint64) (journal.DownloadResponse, error) {
	doc, err := s.Repo.Current(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return journal.DownloadResponse{}, nil
	}
	if err != nil {
		return journal.DownloadResponse{}, err
	}

	appData, err := Decode(doc)
	if err != nil {
		return journal.DownloadResponse{}, err
	}
	synced := doc.UpdatedAt
	return journal.DownloadResponse{AppData: appData, LastSynced: &synced}, nil
}

// Decode parses a stored projection back into a journal document.
func Decode(doc *Document) (*journal.Document, error) {
	var appData journal.Document
	if err := json.Unmarshal(doc.Payload, &appData); err != nil {
		return nil, fmt.Errorf("decode stored document for user %d: %w", doc.UserID, err)
	}
	return &appData, nil
}
