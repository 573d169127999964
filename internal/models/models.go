package models

import "time"

// Account is the credit ledger row for one phone identity.
type Account struct {
	ID        int64
	Phone     string
	Credits   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Redemption records one consumed code. Codes are single-use system-wide,
// so the code column carries a unique constraint.
type Redemption struct {
	ID         int64
	Code       string
	Phone      string
	RedeemedAt time.Time
}

// Generation is the audit row written after a successful generation.
type Generation struct {
	ID         int64
	Phone      string
	Prompt     string
	ImageShape string
	ImageURL   string
	CreatedAt  time.Time
}
