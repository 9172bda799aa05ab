package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

// RemoteAuthProvider validates tokens against the account service. The
// returned user ID is what the tracker registry keys on, so a token for
// an unknown account never reaches the pipeline.
type RemoteAuthProvider struct {
	AuthServiceURL string
	HTTPClient     *http.Client
	logger         internal.Logger
}

func NewRemoteAuthProvider(url string, logger internal.Logger) *RemoteAuthProvider {
	return &RemoteAuthProvider{
		AuthServiceURL: url,
		HTTPClient:     &http.Client{Timeout: 5 * time.Second},
		logger:         logger,
	}
}

func (a *RemoteAuthProvider) ValidateTokenLocal(token string) (*internal.User, error) {
	return nil, errors.New("local validation not available in remote mode")
}

func (a *RemoteAuthProvider) ValidateTokenRemote(ctx context.Context, token string) (*internal.User, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.AuthServiceURL, bytes.NewReader(body))
	if err != nil {
		a.logger.Errorf("auth: failed to create request: %v", err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		a.logger.Errorf("auth: account service unreachable: %v", err)
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		a.logger.Errorf("auth: account service returned %d", resp.StatusCode)
		return nil, errors.New("account service rejected token")
	}

	var user internal.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		a.logger.Errorf("auth: failed to decode account response: %v", err)
		return nil, err
	}
	if user.ID == "" {
		return nil, errors.New("account service returned no user id")
	}
	return &user, nil
}

var _ Provider = (*RemoteAuthProvider)(nil)
