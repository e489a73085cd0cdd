// Package chain implements the JSON-RPC client for the two chain
// operations the service consumes: account authorities and profiles.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"imagehoster/domain"
	"imagehoster/utils/logger"
)

const (
	accountCacheSize = 4096
	cacheTTL         = 30 * time.Second
)

// Client is a JSON-RPC client with fail-over across a configured node
// list and process-local TTL caches for accounts and profiles.
type Client struct {
	httpClient *http.Client
	nodes      []string
	threshold  int
	timeout    time.Duration

	mu       sync.Mutex
	current  int
	failures int

	accountCache *expirable.LRU[string, *domain.Account]
	profileCache *expirable.LRU[string, *domain.Profile]
}

// NewClient creates a chain client. threshold consecutive failures on the
// current node switch subsequent calls to the next one.
func NewClient(nodes []string, timeout time.Duration, threshold int) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if threshold < 1 {
		threshold = 2
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		nodes:        nodes,
		threshold:    threshold,
		timeout:      timeout,
		accountCache: expirable.NewLRU[string, *domain.Account](accountCacheSize, nil, cacheTTL),
		profileCache: expirable.NewLRU[string, *domain.Profile](accountCacheSize, nil, cacheTTL),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) node() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodes[c.current%len(c.nodes)]
}

func (c *Client) recordFailure(node string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures >= c.threshold {
		c.current = (c.current + 1) % len(c.nodes)
		c.failures = 0
		logger.SafeWarnContext(context.Background(), "rpc node failed over",
			"from", node, "to", c.nodes[c.current], "error", err)
	}
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
}

// call performs one JSON-RPC request against the current node.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	node := c.node()

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return nil, fmt.Errorf("marshal rpc request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, node, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(node, err)
		return nil, fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("rpc %s: status %d", method, resp.StatusCode)
		c.recordFailure(node, err)
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		c.recordFailure(node, err)
		return nil, fmt.Errorf("read rpc response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		c.recordFailure(node, err)
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}

	c.recordSuccess()

	if rpcResp.Error != nil {
		return nil, fmt.Errorf("rpc %s: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}
	return rpcResp.Result, nil
}

// GetAccount returns the account record, or nil when no such account
// exists. Results are cached for 30 seconds.
func (c *Client) GetAccount(ctx context.Context, name string) (*domain.Account, error) {
	if cached, ok := c.accountCache.Get(name); ok {
		return cached, nil
	}

	result, err := c.call(ctx, "condenser_api.get_accounts", []any{[]string{name}})
	if err != nil {
		return nil, err
	}

	var accounts []*domain.Account
	if err := json.Unmarshal(result, &accounts); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, nil
	}

	c.accountCache.Add(name, accounts[0])
	return accounts[0], nil
}

// GetProfile returns the bridge profile record, or nil when no such
// account exists. Results are cached for 30 seconds.
func (c *Client) GetProfile(ctx context.Context, name string) (*domain.Profile, error) {
	if cached, ok := c.profileCache.Get(name); ok {
		return cached, nil
	}

	result, err := c.call(ctx, "bridge.get_profile", map[string]string{"account": name})
	if err != nil {
		// The bridge API reports unknown accounts as an RPC error.
		if strings.Contains(err.Error(), "does not exist") {
			return nil, nil
		}
		return nil, err
	}
	if len(result) == 0 || string(result) == "null" {
		return nil, nil
	}

	var profile domain.Profile
	if err := json.Unmarshal(result, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	c.profileCache.Add(name, &profile)
	return &profile, nil
}
