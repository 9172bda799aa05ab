package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

// HTTPLiveProvider polls a fitness-data service over JSON/HTTP. The
// provider is rate-limited and flaky by nature; every call is bounded by
// the client timeout and by the caller's context.
type HTTPLiveProvider struct {
	BaseURL    string
	HTTPClient *http.Client
	logger     internal.Logger
}

func NewHTTPLiveProvider(baseURL string, logger internal.Logger) *HTTPLiveProvider {
	if logger == nil {
		logger = internal.NopLogger{}
	}
	return &HTTPLiveProvider{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

func (p *HTTPLiveProvider) Poll(ctx context.Context, from, to time.Time) (LiveSample, error) {
	url := fmt.Sprintf("%s/v1/activity?from=%s&to=%s",
		p.BaseURL, from.Format(time.RFC3339), to.Format(time.RFC3339))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.logger.Errorf("live provider: failed to create request: %v", err)
		return LiveSample{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		p.logger.Errorf("live provider: poll failed: %v", err)
		return LiveSample{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		p.logger.Errorf("live provider returned %d", resp.StatusCode)
		return LiveSample{}, errors.New("live provider returned non-200")
	}

	var sample LiveSample
	if err := json.NewDecoder(resp.Body).Decode(&sample); err != nil {
		p.logger.Errorf("live provider: failed to decode response: %v", err)
		return LiveSample{}, err
	}
	return sample, nil
}

var _ LiveProvider = (*HTTPLiveProvider)(nil)
