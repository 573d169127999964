package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/beijibiao/signstudio/internal/models"
)

type GenerationRepository struct {
	db *sql.DB
}

func NewGenerationRepository(db *sql.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) Log(ctx context.Context, phone, prompt, imageShape, imageURL string) error {
	const query = `
INSERT INTO generations (phone, prompt, image_shape, image_url)
VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, phone, prompt, imageShape, imageURL); err != nil {
		return fmt.Errorf("insert generation log: %w", err)
	}
	return nil
}

// Latest returns the most recent successful generation for an identity, or
// nil when none exists.
func (r *GenerationRepository) Latest(ctx context.Context, phone string) (*models.Generation, error) {
	const query = `
SELECT id, phone, prompt, image_shape, image_url, created_at
FROM generations WHERE phone = ? ORDER BY id DESC LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, phone)
	var g models.Generation
	if err := row.Scan(&g.ID, &g.Phone, &g.Prompt, &g.ImageShape, &g.ImageURL, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan latest generation: %w", err)
	}
	return &g, nil
}
