package common

import "context"

// Gateway abstracts a trading venue bound to one account.
// SubmitOrder never returns an error: every failure is carried by the outcome.
type Gateway interface {
	SubmitOrder(ctx context.Context, req OrderRequest) OrderOutcome
}
