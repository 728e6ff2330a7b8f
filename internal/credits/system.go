package credits

import (
	"context"

	"github.com/JaimeStill/palette/pkg/pagination"
)

// System is the credit ledger. It satisfies pipeline.Ledger.
type System interface {
	Handler() *Handler

	// Balance returns the user's balance, opening an account with the
	// configured initial balance on first use.
	Balance(ctx context.Context, userID string) (int, error)
	// Debit subtracts amount only if the balance covers it and returns the
	// new balance. An uncovered debit returns *pipeline.BalanceError.
	Debit(ctx context.Context, userID string, amount int, memo string) (int, error)
	Grant(ctx context.Context, cmd GrantCommand) (int, error)
	History(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResult[Entry], error)
}
