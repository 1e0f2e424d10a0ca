package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spacesedan/myriadflow/config"
)

// RewardClient calls the reward ledger. Calls are never retried; the
// dispatcher logs failures and moves on.
type RewardClient struct {
	Client  *http.Client
	baseURL string
	apiKey  string
}

type rewardRequest struct {
	ID string `json:"id"`
}

func NewRewardClient(cfg config.RewardConfig, client *http.Client) *RewardClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RewardClient{
		Client:  client,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

func (rc *RewardClient) CreditDefaultCurrency(ctx context.Context, userID string) error {
	return rc.post(ctx, "currencies/default", userID)
}

func (rc *RewardClient) GrantInitialTip(ctx context.Context, userID string) error {
	return rc.post(ctx, "tips/initial", userID)
}

func (rc *RewardClient) PayoutReward(ctx context.Context, accountID string) error {
	return rc.post(ctx, "rewards/payout", accountID)
}

func (rc *RewardClient) ClaimPendingTips(ctx context.Context, subjectID string) error {
	return rc.post(ctx, "tips/claim", subjectID)
}

func (rc *RewardClient) post(ctx context.Context, path, id string) error {
	if rc.baseURL == "" {
		return fmt.Errorf("[RewardClient] %s: reward api url is not configured", path)
	}
	payload, err := json.Marshal(rewardRequest{ID: id})
	if err != nil {
		return err
	}

	u := strings.TrimRight(rc.baseURL, "/") + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("[RewardClient] failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)
	if rc.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+rc.apiKey)
	}

	res, err := rc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("[RewardClient] %s: %w", path, err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("[RewardClient] %s returned status %d", path, res.StatusCode)
	}

	slog.Debug("[RewardClient] Request completed",
		slog.String("path", path),
		slog.String("id", id))
	return nil
}
