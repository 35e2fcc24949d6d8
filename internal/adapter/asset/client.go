package asset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/byuri-coder/pecu-backend/internal/domain"
	"github.com/byuri-coder/pecu-backend/internal/platform/logger"
)

// Config holds the asset collaborator connection settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is the HTTP implementation of domain.AssetGateway. The asset
// service owns listings; this engine only reads price/owner data and flips
// the sold flag on finalize.
type Client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

// New creates a new asset client
func New(log *logger.Logger, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("asset service base URL is required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		log:        log.With("client", "AssetClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type assetPayload struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	OwnerID string          `json:"ownerId"`
	Price   decimal.Decimal `json:"price"`
	Sold    bool            `json:"sold"`
}

// GetAsset fetches price/title/owner for the negotiated asset
func (c *Client) GetAsset(ctx context.Context, assetID string) (*domain.Asset, error) {
	endpoint := fmt.Sprintf("%s/assets/%s", c.cfg.BaseURL, url.PathEscape(assetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build asset request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asset service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("asset %s: %w", assetID, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("asset service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload assetPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode asset response: %w", err)
	}
	return &domain.Asset{
		ID:      payload.ID,
		Title:   payload.Title,
		OwnerID: payload.OwnerID,
		Price:   payload.Price,
		Sold:    payload.Sold,
	}, nil
}

// MarkSold flags the asset as sold. The asset service treats the flag as
// idempotent, so a retried finalize re-sending the request is harmless.
func (c *Client) MarkSold(ctx context.Context, assetID string) error {
	endpoint := fmt.Sprintf("%s/assets/%s/sold", c.cfg.BaseURL, url.PathEscape(assetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build mark-sold request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("asset service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("asset %s: %w", assetID, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("asset service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	c.log.Info("asset marked sold", "asset_id", assetID)
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}
