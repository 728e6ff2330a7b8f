package credits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/palette/internal/pipeline"
	"github.com/JaimeStill/palette/pkg/pagination"
	"github.com/JaimeStill/palette/pkg/repository"
)

type repo struct {
	db         *sql.DB
	cfg        Config
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the PostgreSQL-backed credit ledger.
func New(db *sql.DB, cfg Config, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		cfg:        cfg,
		logger:     logger.With("system", "credits"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.cfg.AllowGrants, r.logger, r.pagination)
}

const openAccount = `
	INSERT INTO credit_balances (user_id, balance)
	VALUES ($1, $2)
	ON CONFLICT (user_id) DO NOTHING`

func (r *repo) Balance(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrMissingUser
	}

	if _, err := r.db.ExecContext(ctx, openAccount, userID, r.cfg.InitialBalance); err != nil {
		return 0, fmt.Errorf("open account: %w", err)
	}

	balance, err := repository.QueryScalar[int](ctx, r.db,
		"SELECT balance FROM credit_balances WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

func (r *repo) Debit(ctx context.Context, userID string, amount int, memo string) (int, error) {
	if userID == "" {
		return 0, ErrMissingUser
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	const debit = `
		UPDATE credit_balances
		SET balance = balance - $1, updated_at = now()
		WHERE user_id = $2 AND balance >= $1
		RETURNING balance`

	balance, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (int, error) {
		balance, err := repository.QueryScalar[int](ctx, tx, debit, amount, userID)
		if err != nil {
			return 0, err
		}
		if err := r.record(ctx, tx, userID, -amount, balance, memo); err != nil {
			return 0, err
		}
		return balance, nil
	})

	if errors.Is(err, sql.ErrNoRows) {
		available, err := repository.QueryScalar[int](ctx, r.db,
			"SELECT balance FROM credit_balances WHERE user_id = $1", userID)
		return shortfall(amount, available, err)
	}
	if err != nil {
		return 0, fmt.Errorf("debit: %w", err)
	}

	r.logger.InfoContext(ctx, "credits debited", "user", userID, "amount", amount, "balance", balance)
	return balance, nil
}

func (r *repo) Grant(ctx context.Context, cmd GrantCommand) (int, error) {
	if cmd.UserID == "" {
		return 0, ErrMissingUser
	}
	if cmd.Amount <= 0 {
		return 0, ErrInvalidAmount
	}

	const grant = `
		INSERT INTO credit_balances (user_id, balance)
		VALUES ($1, $2::integer + $3::integer)
		ON CONFLICT (user_id)
		DO UPDATE SET balance = credit_balances.balance + $3, updated_at = now()
		RETURNING balance`

	balance, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (int, error) {
		balance, err := repository.QueryScalar[int](ctx, tx, grant, cmd.UserID, r.cfg.InitialBalance, cmd.Amount)
		if err != nil {
			return 0, err
		}
		return balance, r.record(ctx, tx, cmd.UserID, cmd.Amount, balance, cmd.Memo)
	})
	if err != nil {
		return 0, fmt.Errorf("grant: %w", err)
	}

	r.logger.InfoContext(ctx, "credits granted", "user", cmd.UserID, "amount", cmd.Amount, "balance", balance)
	return balance, nil
}

func (r *repo) History(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResult[Entry], error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	page.Normalize(r.pagination)

	qb := ledgerQuery(userID)
	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count ledger: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	entries, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}

	result := pagination.NewPageResult(entries, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) record(ctx context.Context, tx *sql.Tx, userID string, amount, balance int, memo string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_ledger (user_id, amount, balance, memo)
		VALUES ($1, $2, $3, $4)`,
		userID, amount, balance, memo,
	)
	if err != nil {
		return fmt.Errorf("record ledger entry: %w", err)
	}
	return nil
}

// shortfall reports a rejected debit. A missing account has nothing
// available; any other read failure is returned as is.
func shortfall(required, available int, err error) (int, error) {
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("debit: read balance: %w", err)
	}
	if err != nil {
		available = 0
	}
	return available, &pipeline.BalanceError{Required: required, Available: available}
}
