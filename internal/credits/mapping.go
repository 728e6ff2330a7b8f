package credits

import (
	"github.com/JaimeStill/palette/pkg/query"
	"github.com/JaimeStill/palette/pkg/repository"
)

var ledgerProjection = query.
	NewProjectionMap("public", "credit_ledger", "l").
	Project("id", "id").
	Project("user_id", "userId").
	Project("amount", "amount").
	Project("balance", "balance").
	Project("memo", "memo").
	Project("created_at", "createdAt")

var ledgerSort = query.SortField{Field: "createdAt", Descending: true}

func ledgerQuery(userID string) *query.Builder {
	return query.NewBuilder(ledgerProjection, ledgerSort).WhereEquals("userId", userID)
}

func scanEntry(s repository.Scanner) (Entry, error) {
	var e Entry
	err := s.Scan(&e.ID, &e.UserID, &e.Amount, &e.Balance, &e.Memo, &e.CreatedAt)
	return e, err
}
