package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reyschwartz19/OpTracker/internal/model"
	"github.com/reyschwartz19/OpTracker/internal/repository"
	"github.com/reyschwartz19/OpTracker/internal/storage"
	"github.com/reyschwartz19/OpTracker/internal/validation"
)

type UploadDocumentInput struct {
	Category      string `validate:"omitempty,max=50"`
	OpportunityID string
}

type DocumentService struct {
	documentRepo repository.DocumentRepository
	oppRepo      repository.OpportunityRepository
	storage      storage.Storage
	now          func() time.Time
}

func NewDocumentService(
	documentRepo repository.DocumentRepository,
	oppRepo repository.OpportunityRepository,
	storage storage.Storage,
) *DocumentService {
	return &DocumentService{
		documentRepo: documentRepo,
		oppRepo:      oppRepo,
		storage:      storage,
		now:          time.Now,
	}
}

// Upload validates and stores a file under documents/<userID>/ and records it.
func (s *DocumentService) Upload(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader, in UploadDocumentInput) (*model.Document, error) {
	mimeType, err := validation.ValidateFile(header, validation.DocumentConstraints)
	if err != nil {
		return nil, invalid("file", err.Error())
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = model.DocumentCategoryOther
	}
	in.Category = category
	err = validateStruct(in)
	if err != nil {
		return nil, err
	}

	var opportunityID *string
	if in.OpportunityID != "" {
		// only attach to opportunities the caller owns
		_, err := s.oppRepo.ByID(ctx, userID, in.OpportunityID)
		if err != nil {
			if errors.Is(err, repository.ErrOpportunityNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to check opportunity: %w", err)
		}
		opportunityID = &in.OpportunityID
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	key := path.Join("documents", userID, uuid.New().String()+ext)

	err = s.storage.Save(ctx, key, mimeType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	doc := &model.Document{
		ID:            uuid.New().String(),
		UserID:        userID,
		OpportunityID: opportunityID,
		Filename:      filepath.Base(header.Filename),
		StoragePath:   key,
		FileSize:      header.Size,
		MimeType:      mimeType,
		Category:      category,
		CreatedAt:     s.now().UTC(),
	}

	err = s.documentRepo.Create(ctx, doc)
	if err != nil {
		delErr := s.storage.Delete(ctx, key)
		if delErr != nil {
			slog.Error("failed to delete file from storage during cleanup", "error", delErr, "path", key)
		}
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	doc.URL = s.url(ctx, doc)
	slog.Info("document uploaded", "document_id", doc.ID, "user_id", userID, "size", doc.FileSize)
	return doc, nil
}

func (s *DocumentService) Documents(ctx context.Context, userID string) ([]*model.Document, error) {
	docs, err := s.documentRepo.Documents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range docs {
		doc.URL = s.url(ctx, doc)
	}
	return docs, nil
}

// Delete removes the record; the blob is removed best effort.
func (s *DocumentService) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.documentRepo.ByID(ctx, userID, id)
	if err != nil {
		return err
	}

	err = s.documentRepo.Delete(ctx, userID, doc.ID)
	if err != nil {
		return err
	}

	delErr := s.storage.Delete(ctx, doc.StoragePath)
	if delErr != nil {
		slog.Warn("failed to delete file from storage", "error", delErr, "path", doc.StoragePath)
	}

	return nil
}

func (s *DocumentService) url(ctx context.Context, doc *model.Document) string {
	url, err := s.storage.URL(ctx, doc.StoragePath)
	if err != nil {
		slog.Warn("failed to build document url", "error", err, "document_id", doc.ID)
		return ""
	}
	return url
}
