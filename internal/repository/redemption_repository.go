package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/beijibiao/signstudio/internal/models"
	"github.com/beijibiao/signstudio/internal/service"
)

type RedemptionRepository struct {
	db *sql.DB
}

func NewRedemptionRepository(db *sql.DB) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// Redeem marks the code used and grants the bonus in one transaction, so no
// observable state exists where credits were granted without the mark or the
// mark written without the payout. The unique key on used_codes.code makes a
// replayed code fail with service.ErrCodeAlreadyUsed regardless of identity.
// Returns the new balance.
func (r *RedemptionRepository) Redeem(ctx context.Context, phone, code string, bonus int) (int, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO used_codes (code, phone) VALUES (?, ?)`, code, phone); err != nil {
		if isDuplicateKey(err) {
			return 0, service.ErrCodeAlreadyUsed
		}
		return 0, fmt.Errorf("mark code used: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET credits = credits + ?, updated_at = NOW() WHERE phone = ?`, bonus, phone); err != nil {
		return 0, fmt.Errorf("grant bonus: %w", err)
	}

	var balance int
	row := tx.QueryRowContext(ctx, `SELECT credits FROM accounts WHERE phone = ?`, phone)
	if err := row.Scan(&balance); err != nil {
		return 0, fmt.Errorf("scan bonus balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit redemption tx: %w", err)
	}
	return balance, nil
}

func (r *RedemptionRepository) List(ctx context.Context) ([]models.Redemption, error) {
	const query = `
SELECT id, code, phone, redeemed_at
FROM used_codes ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []models.Redemption
	for rows.Next() {
		var red models.Redemption
		if err := rows.Scan(&red.ID, &red.Code, &red.Phone, &red.RedeemedAt); err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, red)
	}
	return redemptions, rows.Err()
}

// isDuplicateKey reports whether the error is a MySQL unique constraint
// violation (error 1062).
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
