// Package suirpc provides a minimal JSON-RPC 2.0 client for the chain
// fullnode, covering the read-only calls the sponsorship service needs:
// treasury balance and the current epoch.
package suirpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/opencampaigns/sponsord/interfaces"
)

// nativeCoinType is the coin queried for treasury balances.
const nativeCoinType = "0x2::sui::SUI"

// Client talks JSON-RPC 2.0 to a fullnode endpoint. It performs no retries;
// callers own timeout and retry policy through the request context.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a fullnode client for the given endpoint URL.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Balance returns the address's native-coin balance in the smallest unit.
func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	var result struct {
		CoinType     string `json:"coinType"`
		TotalBalance string `json:"totalBalance"`
	}

	if err := c.call(ctx, "suix_getBalance", []interface{}{address, nativeCoinType}, &result); err != nil {
		return 0, err
	}

	balance, err := strconv.ParseUint(result.TotalBalance, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: fullnode returned unparseable balance %q", interfaces.ErrNetwork, result.TotalBalance)
	}

	return balance, nil
}

// CurrentEpoch returns the chain's current epoch, used by clients to compute
// the max-epoch bound of ephemeral login keys.
func (c *Client) CurrentEpoch(ctx context.Context) (uint64, error) {
	var result struct {
		Epoch string `json:"epoch"`
	}

	if err := c.call(ctx, "suix_getLatestSuiSystemState", []interface{}{}, &result); err != nil {
		return 0, err
	}

	epoch, err := strconv.ParseUint(result.Epoch, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: fullnode returned unparseable epoch %q", interfaces.ErrNetwork, result.Epoch)
	}

	return epoch, nil
}

// call performs one JSON-RPC round trip, decoding the result into out.
// Transport and protocol failures both classify as ErrNetwork.
func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("could not encode rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s request failed: %v", interfaces.ErrNetwork, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: fullnode returned %d for %s: %s", interfaces.ErrNetwork, resp.StatusCode, method, string(bodyBytes))
	}

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("%w: could not parse %s response: %v", interfaces.ErrNetwork, method, err)
	}

	if parsed.Error != nil {
		return fmt.Errorf("%w: %s: %v", interfaces.ErrNetwork, method, parsed.Error)
	}

	if err := json.Unmarshal(parsed.Result, out); err != nil {
		return fmt.Errorf("%w: could not parse %s result: %v", interfaces.ErrNetwork, method, err)
	}

	return nil
}
