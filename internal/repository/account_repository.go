package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/beijibiao/signstudio/internal/models"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) DB() *sql.DB {
	return r.db
}

func (r *AccountRepository) FindByPhone(ctx context.Context, phone string) (*models.Account, error) {
	const query = `
SELECT id, phone, credits, created_at, updated_at
FROM accounts WHERE phone = ?`
	row := r.db.QueryRowContext(ctx, query, phone)
	var a models.Account
	if err := row.Scan(&a.ID, &a.Phone, &a.Credits, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

func (r *AccountRepository) Create(ctx context.Context, phone string, credits int) (*models.Account, error) {
	const query = `INSERT INTO accounts (phone, credits) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, query, phone, credits)
	if err != nil {
		if isDuplicateKey(err) {
			// Lost the insert race; the concurrent winner's row is authoritative.
			return r.FindByPhone(ctx, phone)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &models.Account{ID: id, Phone: phone, Credits: credits}, nil
}

func (r *AccountRepository) Balance(ctx context.Context, phone string) (int, error) {
	const query = `SELECT credits FROM accounts WHERE phone = ?`
	row := r.db.QueryRowContext(ctx, query, phone)
	var credits int
	if err := row.Scan(&credits); err != nil {
		return 0, fmt.Errorf("scan balance: %w", err)
	}
	return credits, nil
}

// AddCredits applies a positive delta and returns the new balance.
func (r *AccountRepository) AddCredits(ctx context.Context, phone string, delta int) (int, error) {
	const query = `UPDATE accounts SET credits = credits + ?, updated_at = NOW() WHERE phone = ?`
	if _, err := r.db.ExecContext(ctx, query, delta, phone); err != nil {
		return 0, fmt.Errorf("add credits: %w", err)
	}
	return r.Balance(ctx, phone)
}

// ConsumeCredit decrements the balance by one only if at least one credit is
// available. The conditional UPDATE is the atomicity boundary: a stale
// in-memory balance can never drive the row negative.
func (r *AccountRepository) ConsumeCredit(ctx context.Context, phone string) (bool, error) {
	const query = `
UPDATE accounts SET credits = credits - 1, updated_at = NOW()
WHERE phone = ? AND credits >= 1`
	res, err := r.db.ExecContext(ctx, query, phone)
	if err != nil {
		return false, fmt.Errorf("consume credit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]models.Account, error) {
	const query = `
SELECT id, phone, credits, created_at, updated_at
FROM accounts ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Phone, &a.Credits, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account list: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
