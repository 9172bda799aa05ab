package auth

import (
	"context"
	"errors"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

// LocalAuthProvider accepts a single configured token, for development
// and tests. Every session maps to the same demo user and therefore to
// the same tracker instance.
type LocalAuthProvider struct {
	Token  string
	logger internal.Logger
}

func NewLocalAuthProvider(token string, logger internal.Logger) *LocalAuthProvider {
	return &LocalAuthProvider{Token: token, logger: logger}
}

func (a *LocalAuthProvider) ValidateTokenLocal(token string) (*internal.User, error) {
	if token == a.Token {
		return &internal.User{ID: "u1", Token: a.Token, Name: "Vita Demo"}, nil
	}
	a.logger.Warnf("rejected token for metrics API: %s", token)
	return nil, errors.New("invalid token")
}

func (a *LocalAuthProvider) ValidateTokenRemote(ctx context.Context, token string) (*internal.User, error) {
	return nil, errors.New("remote validation not available in local mode")
}

var _ Provider = (*LocalAuthProvider)(nil)
