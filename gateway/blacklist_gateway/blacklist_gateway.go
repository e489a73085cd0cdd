// Package blacklist_gateway maintains the image and account blacklists
// from a local seed file and optional remote lists.
package blacklist_gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"imagehoster/utils/logger"
)

const (
	// maxFailCount is how many consecutive refresh failures are tolerated
	// before backing off.
	maxFailCount = 5
	backoffScale = 3
	listReadCap  = 8 << 20
)

// snapshot is an immutable view of both lists. Lookups read the current
// snapshot and never block on a refresh.
type snapshot struct {
	images   map[string]bool
	accounts map[string]bool
}

// seedFile is the on-disk blacklist format.
type seedFile struct {
	Images   []string `json:"images"`
	Accounts []string `json:"accounts"`
}

// BlacklistGateway implements the Blacklist port.
type BlacklistGateway struct {
	httpClient  *http.Client
	seedPath    string
	imagesURL   string
	accountsURL string
	ttl         time.Duration

	current   atomic.Pointer[snapshot]
	failCount int
	nextAt    time.Time
}

// NewBlacklistGateway loads the seed file and returns a gateway ready for
// lookups. A missing or unreadable seed file leaves the lists empty.
func NewBlacklistGateway(seedPath, imagesURL, accountsURL string, ttl time.Duration) *BlacklistGateway {
	g := &BlacklistGateway{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		seedPath:    seedPath,
		imagesURL:   imagesURL,
		accountsURL: accountsURL,
		ttl:         ttl,
	}

	snap := &snapshot{images: map[string]bool{}, accounts: map[string]bool{}}
	if seedPath != "" {
		if err := loadSeed(seedPath, snap); err != nil {
			logger.SafeWarnContext(context.Background(), "blacklist seed load failed", "path", seedPath, "error", err)
		}
	}
	g.current.Store(snap)
	return g
}

func loadSeed(path string, snap *snapshot) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	for _, entry := range seed.Images {
		snap.images[strings.TrimSpace(entry)] = true
	}
	for _, entry := range seed.Accounts {
		snap.accounts[strings.ToLower(strings.TrimSpace(entry))] = true
	}
	return nil
}

// IsImageBlacklisted checks the given identifiers (canonical URL, cache
// keys) against the image list.
func (g *BlacklistGateway) IsImageBlacklisted(identifiers ...string) bool {
	snap := g.current.Load()
	for _, id := range identifiers {
		if id != "" && snap.images[id] {
			return true
		}
	}
	return false
}

// IsAccountBlacklisted checks an account name against the account list.
func (g *BlacklistGateway) IsAccountBlacklisted(account string) bool {
	return g.current.Load().accounts[strings.ToLower(account)]
}

// Refresh fetches the remote lists if due and swaps in a new snapshot.
// Repeated failures push the next attempt out to a multiple of the TTL so
// a dead list host is not hammered.
func (g *BlacklistGateway) Refresh(ctx context.Context) {
	if g.imagesURL == "" && g.accountsURL == "" {
		return
	}
	if time.Now().Before(g.nextAt) {
		return
	}

	next := &snapshot{images: map[string]bool{}, accounts: map[string]bool{}}
	if g.seedPath != "" {
		if err := loadSeed(g.seedPath, next); err != nil {
			logger.SafeWarnContext(ctx, "blacklist seed reload failed", "path", g.seedPath, "error", err)
		}
	}

	var failed bool
	if g.imagesURL != "" {
		if err := g.fetchList(ctx, g.imagesURL, func(entry string) {
			next.images[entry] = true
		}); err != nil {
			logger.SafeWarnContext(ctx, "image blacklist refresh failed", "url", g.imagesURL, "error", err)
			failed = true
		}
	}
	if g.accountsURL != "" {
		if err := g.fetchList(ctx, g.accountsURL, func(entry string) {
			next.accounts[strings.ToLower(entry)] = true
		}); err != nil {
			logger.SafeWarnContext(ctx, "account blacklist refresh failed", "url", g.accountsURL, "error", err)
			failed = true
		}
	}

	if failed {
		g.failCount++
		if g.failCount >= maxFailCount {
			g.nextAt = time.Now().Add(backoffScale * g.ttl)
			logger.SafeWarnContext(ctx, "blacklist refresh backing off",
				"fail_count", g.failCount, "next_at", g.nextAt)
		}
		// Keep serving the previous snapshot.
		return
	}

	g.failCount = 0
	g.nextAt = time.Now().Add(g.ttl)
	g.current.Store(next)
	logger.SafeInfoContext(ctx, "blacklist refreshed",
		"images", len(next.images), "accounts", len(next.accounts))
}

// fetchList downloads a newline-separated list. Blank lines and lines
// starting with # are skipped.
func (g *BlacklistGateway) fetchList(ctx context.Context, rawURL string, add func(string)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(io.LimitReader(resp.Body, listReadCap))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		add(line)
	}
	return scanner.Err()
}
