// Package repositories contains the data access layer for the schema library.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scanbench/scanbench-engine/pkg/apperrors"
	"github.com/scanbench/scanbench-engine/pkg/database"
	"github.com/scanbench/scanbench-engine/pkg/models"
)

// SchemaRepository defines data access for stored schema documents.
type SchemaRepository interface {
	Create(ctx context.Context, doc *models.SchemaDocument) error
	Get(ctx context.Context, id uuid.UUID) (*models.SchemaDocument, error)
	// GetContent returns just the raw document body, for the resolver's
	// content fetcher.
	GetContent(ctx context.Context, id uuid.UUID) (string, error)
	List(ctx context.Context) ([]*models.SchemaDocument, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// schemaRepository implements SchemaRepository using PostgreSQL.
type schemaRepository struct {
	db *database.DB
}

// NewSchemaRepository creates a new schema repository.
func NewSchemaRepository(db *database.DB) SchemaRepository {
	return &schemaRepository{db: db}
}

// Create inserts a new schema document, generating an ID if none is set.
func (r *schemaRepository) Create(ctx context.Context, doc *models.SchemaDocument) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Format == "" {
		doc.Format = "json"
	}

	query := `
		INSERT INTO engine_schema_documents (id, name, format, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		doc.ID, doc.Name, doc.Format, doc.Content, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create schema document: %w", err)
	}
	return nil
}

// Get retrieves a schema document by ID, including its content.
func (r *schemaRepository) Get(ctx context.Context, id uuid.UUID) (*models.SchemaDocument, error) {
	query := `
		SELECT id, name, format, content, created_at, updated_at
		FROM engine_schema_documents
		WHERE id = $1`

	var doc models.SchemaDocument
	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.Name, &doc.Format, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schema document: %w", err)
	}
	return &doc, nil
}

// GetContent retrieves only the raw body of a schema document.
func (r *schemaRepository) GetContent(ctx context.Context, id uuid.UUID) (string, error) {
	query := `SELECT content FROM engine_schema_documents WHERE id = $1`

	var content string
	err := r.db.QueryRow(ctx, query, id).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get schema document content: %w", err)
	}
	return content, nil
}

// List returns all schema documents, newest first, without their content.
func (r *schemaRepository) List(ctx context.Context) ([]*models.SchemaDocument, error) {
	query := `
		SELECT id, name, format, created_at, updated_at
		FROM engine_schema_documents
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.SchemaDocument
	for rows.Next() {
		var doc models.SchemaDocument
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Format, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schema document: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schema documents: %w", err)
	}
	return docs, nil
}

// Delete removes a schema document by ID.
func (r *schemaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM engine_schema_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schema document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
