package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"code-reveal-backend/internal/models"

	"golang.org/x/sync/errgroup"
)

// PriceOracle supplies the token's current price and supply.
type PriceOracle interface {
	Quote(ctx context.Context) (*models.MarketQuote, error)
}

// RaydiumSolanaOracle reads the price from the Raydium mint price API and the
// supply from a Solana RPC node.
type RaydiumSolanaOracle struct {
	mint     string
	priceURL string
	rpcURL   string
	client   *http.Client
}

func NewRaydiumSolanaOracle(mint, priceURL, rpcURL string, timeout time.Duration) *RaydiumSolanaOracle {
	return &RaydiumSolanaOracle{
		mint:     mint,
		priceURL: strings.TrimRight(priceURL, "/"),
		rpcURL:   rpcURL,
		client:   &http.Client{Timeout: timeout},
	}
}

func (o *RaydiumSolanaOracle) Quote(ctx context.Context) (*models.MarketQuote, error) {
	var price, supply float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		price, err = o.price(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		supply, err = o.supply(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.MarketQuote{
		Price:     price,
		Supply:    supply,
		MarketCap: price * supply,
	}, nil
}

type raydiumPriceResponse struct {
	ID      string            `json:"id"`
	Success bool              `json:"success"`
	Data    map[string]string `json:"data"`
}

func (o *RaydiumSolanaOracle) price(ctx context.Context) (float64, error) {
	endpoint := fmt.Sprintf("%s/mint/price?mints=%s", o.priceURL, url.QueryEscape(o.mint))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price api returned %d", resp.StatusCode)
	}

	var body raydiumPriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode price response: %w", err)
	}

	raw, ok := body.Data[o.mint]
	if !body.Success || !ok {
		return 0, fmt.Errorf("price for %s not found in response", o.mint)
	}

	price, err := parseFinite(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	return price, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type tokenSupplyResponse struct {
	Result struct {
		Value struct {
			Amount         string `json:"amount"`
			Decimals       int    `json:"decimals"`
			UIAmountString string `json:"uiAmountString"`
		} `json:"value"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (o *RaydiumSolanaOracle) supply(ctx context.Context) (float64, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getTokenSupply",
		Params:  []any{o.mint},
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("supply request failed: %w", err)
	}
	defer resp.Body.Close()

	var body tokenSupplyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode supply response: %w", err)
	}
	if body.Error != nil {
		return 0, fmt.Errorf("rpc error %d: %s", body.Error.Code, body.Error.Message)
	}

	supply, err := parseFinite(body.Result.Value.UIAmountString)
	if err != nil {
		return 0, fmt.Errorf("invalid supply %q: %w", body.Result.Value.UIAmountString, err)
	}
	return supply, nil
}

// parseFinite rejects the "Inf" and "NaN" spellings ParseFloat accepts, and
// negative values.
func parseFinite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("value is not finite")
	}
	if v < 0 {
		return 0, errors.New("value is negative")
	}
	return v, nil
}
