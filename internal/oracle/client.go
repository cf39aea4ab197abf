package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrProductNotFound indicates the oracle does not know the product code.
// It is a distinct outcome from a transport or server failure.
var ErrProductNotFound = errors.New("product not found")

// PriceBand is the allowed price range for a product, as reported by the
// external price oracle.
type PriceBand struct {
	ProductName string          `json:"ProductName"`
	MinPrice    decimal.Decimal `json:"minPrice"`
	MaxPrice    decimal.Decimal `json:"maxPrice"`
}

// Client looks up the allowed price band for a product code.
type Client interface {
	// PriceBand returns the price band for the given EAN.
	// Returns ErrProductNotFound when the oracle reports 404.
	PriceBand(ctx context.Context, ean string) (*PriceBand, error)
}

// httpClient implements Client over the oracle's HTTP API.
type httpClient struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient creates an HTTP-backed oracle client. The timeout bounds each
// lookup; expiry surfaces as a transport error.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) Client {
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("client", "price-oracle").Logger(),
	}
}

// PriceBand performs GET {base}/products/{ean}.
func (c *httpClient) PriceBand(ctx context.Context, ean string) (*PriceBand, error) {
	url := fmt.Sprintf("%s/products/%s", c.baseURL, ean)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build oracle request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("ean", ean).Msg("price oracle request failed")
		return nil, fmt.Errorf("price oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var band PriceBand
		if err := json.NewDecoder(resp.Body).Decode(&band); err != nil {
			c.logger.Error().Err(err).Str("ean", ean).Msg("failed to decode oracle response")
			return nil, fmt.Errorf("failed to decode oracle response: %w", err)
		}
		c.logger.Debug().
			Str("ean", ean).
			Str("min_price", band.MinPrice.String()).
			Str("max_price", band.MaxPrice.String()).
			Msg("price band retrieved")
		return &band, nil

	case resp.StatusCode == http.StatusNotFound:
		c.logger.Debug().Str("ean", ean).Msg("product unknown to price oracle")
		return nil, ErrProductNotFound

	default:
		c.logger.Error().
			Str("ean", ean).
			Int("status", resp.StatusCode).
			Msg("unexpected oracle status")
		return nil, fmt.Errorf("price oracle returned status %d", resp.StatusCode)
	}
}
