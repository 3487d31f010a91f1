package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HTTPTransferClient talks to the payout provider's internal API. The
// provider handles the actual bank rail; the engine only sees success or
// failure plus an opaque transfer reference.
type HTTPTransferClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewHTTPTransferClient(baseURL string, timeout time.Duration, log *zap.Logger) *HTTPTransferClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPTransferClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

var _ TransferClient = (*HTTPTransferClient)(nil)

type transferRequest struct {
	CleanerID uuid.UUID `json:"cleaner_id"`
	Amount    string    `json:"amount"`
	Reference string    `json:"reference"`
}

type transferResponse struct {
	TransferRef string `json:"transfer_ref"`
}

func (c *HTTPTransferClient) Transfer(ctx context.Context, cleanerID uuid.UUID, amount decimal.Decimal, reference string) (string, error) {
	body, err := json.Marshal(transferRequest{
		CleanerID: cleanerID,
		Amount:    amount.String(),
		Reference: reference,
	})
	if err != nil {
		return "", err
	}

	url := c.baseURL + "/internal/transfers"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("payout provider unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("payout provider returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.TransferRef == "" {
		return "", fmt.Errorf("payout provider returned empty transfer_ref")
	}
	return out.TransferRef, nil
}
