package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"tixel/internal/httpkit"
	"tixel/internal/models"
)

var ErrDocumentNotFound = errors.New("document not found")
var ErrDocumentNameExists = errors.New("document name already exists")

type DocumentRepository struct {
	db *pgxpool.Pool
}

func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO documents (id, name, svg_key, mime, size_bytes, provider)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, d.ID, d.Name, d.SVGKey, d.Mime, d.SizeBytes, d.Provider).Scan(&d.CreatedAt)

	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ErrDocumentNameExists
		}
		return err
	}
	return nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]models.Document, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(name,''), svg_key, mime, size_bytes, provider, created_at
		FROM documents
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Name, &d.SVGKey, &d.Mime, &d.SizeBytes, &d.Provider, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *DocumentRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	var d models.Document
	err := r.db.QueryRow(ctx, `
		SELECT id, COALESCE(name,''), svg_key, mime, size_bytes, provider, created_at, deleted_at
		FROM documents
		WHERE id=$1 AND deleted_at IS NULL
	`, id).Scan(
		&d.ID,
		&d.Name,
		&d.SVGKey,
		&d.Mime,
		&d.SizeBytes,
		&d.Provider,
		&d.CreatedAt,
		&d.DeletedAt,
	)
	if err != nil {
		return nil, ErrDocumentNotFound
	}
	return &d, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE documents
		SET deleted_at=NOW()
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
