package sheets

import (
	"context"

	"budget/internal/core"
)

// Ports for outbound export adapters.
type (
	// TransactionWriter appends a ledger entry to the external sheet
	// and returns a reference to the written row.
	TransactionWriter interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}
)
