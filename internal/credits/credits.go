// Package credits implements the per-user credit balance and its
// append-only ledger.
package credits

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one balance change. Debits are negative.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId"`
	Amount    int       `json:"amount"`
	Balance   int       `json:"balance"`
	Memo      string    `json:"memo"`
	CreatedAt time.Time `json:"createdAt"`
}

// Balance is the response of the balance endpoint.
type Balance struct {
	UserID  string `json:"userId"`
	Balance int    `json:"balance"`
}

// GrantCommand adds credits to a user.
type GrantCommand struct {
	UserID string `json:"userId"`
	Amount int    `json:"amount"`
	Memo   string `json:"memo"`
}
