// Package auth gates the metrics API behind bearer tokens. The resolved
// user identity keys the per-user tracker registry, so every token must
// map to a stable user ID.
package auth

import (
	"context"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

// Provider resolves a bearer token to the user whose reconciliation
// pipeline the request operates on.
type Provider interface {
	ValidateTokenLocal(token string) (*internal.User, error)
	ValidateTokenRemote(ctx context.Context, token string) (*internal.User, error)
}
