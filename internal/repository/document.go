package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/reyschwartz19/OpTracker/internal/model"
)

var ErrDocumentNotFound = errors.New("document not found")

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	ByID(ctx context.Context, userID, id string) (*model.Document, error)
	Documents(ctx context.Context, userID string) ([]*model.Document, error)
	ByOpportunity(ctx context.Context, userID, opportunityID string) ([]*model.Document, error)
	Delete(ctx context.Context, userID, id string) error
}

type documentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	query := `INSERT INTO documents (id, user_id, opportunity_id, filename, storage_path, file_size, mime_type, category, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.UserID,
		doc.OpportunityID,
		doc.Filename,
		doc.StoragePath,
		doc.FileSize,
		doc.MimeType,
		doc.Category,
		doc.CreatedAt.UTC(),
	)
	return err
}

func (r *documentRepository) ByID(ctx context.Context, userID, id string) (*model.Document, error) {
	doc := &model.Document{}
	query := `SELECT * FROM documents WHERE id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, doc, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func (r *documentRepository) Documents(ctx context.Context, userID string) ([]*model.Document, error) {
	docs := []*model.Document{}
	query := `SELECT * FROM documents WHERE user_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &docs, query, userID)
	if err != nil {
		return nil, err
	}

	return docs, nil
}

func (r *documentRepository) ByOpportunity(ctx context.Context, userID, opportunityID string) ([]*model.Document, error) {
	docs := []*model.Document{}
	query := `SELECT * FROM documents WHERE user_id = $1 AND opportunity_id = $2 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &docs, query, userID, opportunityID)
	if err != nil {
		return nil, err
	}

	return docs, nil
}

func (r *documentRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM documents WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrDocumentNotFound
	}

	return nil
}
