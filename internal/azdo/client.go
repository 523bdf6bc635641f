// Package azdo is a minimal Azure DevOps REST client covering the three
// endpoints needed to reconstruct work item state histories: WIQL queries,
// the work item batch read, and the per-item updates feed.
package azdo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// batchSize is the hard server-side limit on ids per work item batch request.
const batchSize = 200

// Config holds the connection settings for Azure DevOps.
type Config struct {
	BaseURL      string
	Organization string
	Project      string
	PAT          string
	APIVersion   string
	RequestDelay time.Duration
}

// Client is the interface for fetching work items and their histories.
type Client interface {
	QueryWorkItemIDs(ctx context.Context, wiql string) ([]int, error)
	GetWorkItems(ctx context.Context, ids []int) ([]WorkItemDTO, error)
	GetUpdates(ctx context.Context, id int) ([]UpdateDTO, error)
}

type restClient struct {
	cfg        Config
	httpClient *http.Client

	// throttleMu serializes the request-spacing bookkeeping so the client is
	// safe for concurrent callers.
	throttleMu  sync.Mutex
	lastRequest time.Time
}

// NewClient creates a REST client for the configured organization.
func NewClient(cfg Config) Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "7.0"
	}
	return &restClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

func (c *restClient) throttle() {
	c.throttleMu.Lock()
	defer c.throttleMu.Unlock()

	if c.cfg.RequestDelay <= 0 {
		c.lastRequest = time.Now()
		return
	}
	elapsed := time.Since(c.lastRequest)
	if elapsed < c.cfg.RequestDelay {
		wait := c.cfg.RequestDelay - elapsed
		log.Debug().Dur("wait", wait).Msg("Throttling Azure DevOps request")
		time.Sleep(wait)
	}
	c.lastRequest = time.Now()
}

// authenticateRequest attaches PAT auth. Azure DevOps expects Basic auth with
// an empty user and the token as password.
func (c *restClient) authenticateRequest(req *http.Request) {
	if c.cfg.PAT == "" {
		return
	}
	token := base64.StdEncoding.EncodeToString([]byte(":" + c.cfg.PAT))
	req.Header.Set("Authorization", "Basic "+token)
}

func (c *restClient) do(ctx context.Context, method, rawURL string, body any, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = data
	}

	// One retry covers transient network hiccups and 5xx blips; anything
	// persistent surfaces as the second attempt's error.
	const attempts = 2
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := c.doOnce(ctx, method, rawURL, payload, out)
		if done {
			return err
		}
		lastErr = err
		log.Debug().Err(err).Int("attempt", attempt).Str("url", rawURL).Msg("Retrying Azure DevOps request")
	}
	return lastErr
}

// doOnce performs a single request. done=false marks retryable failures.
func (c *restClient) doOnce(ctx context.Context, method, rawURL string, payload []byte, out any) (done bool, err error) {
	c.throttle()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(payload))
	if err != nil {
		return true, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authenticateRequest(req)

	log.Debug().Str("method", method).Str("url", rawURL).Msg("Azure DevOps request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return false, fmt.Errorf("Azure DevOps API returned status %d for %s", resp.StatusCode, rawURL)
	}
	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return true, fmt.Errorf("Azure DevOps authentication failed (%d), check the PAT and its scopes", resp.StatusCode)
		case http.StatusTooManyRequests:
			retryAfter := resp.Header.Get("Retry-After")
			if retryAfter != "" {
				return true, fmt.Errorf("Azure DevOps rate limit exceeded (429), retry after %s seconds", retryAfter)
			}
			return true, fmt.Errorf("Azure DevOps rate limit exceeded (429)")
		default:
			return true, fmt.Errorf("Azure DevOps API returned status %d for %s", resp.StatusCode, rawURL)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return true, fmt.Errorf("failed to decode Azure DevOps response: %w", err)
	}
	return true, nil
}

// QueryWorkItemIDs runs a WIQL query and returns the matching work item ids.
func (c *restClient) QueryWorkItemIDs(ctx context.Context, wiql string) ([]int, error) {
	u := fmt.Sprintf("%s/%s/_apis/wit/wiql?api-version=%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Project), c.cfg.APIVersion)

	var result wiqlResponse
	if err := c.do(ctx, http.MethodPost, u, map[string]string{"query": wiql}, &result); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(result.WorkItems))
	for _, ref := range result.WorkItems {
		ids = append(ids, ref.ID)
	}
	log.Info().Int("count", len(ids)).Msg("WIQL query returned work items")
	return ids, nil
}

// GetWorkItems fetches work item fields for the given ids, chunking requests
// to stay under the server's batch limit.
func (c *restClient) GetWorkItems(ctx context.Context, ids []int) ([]WorkItemDTO, error) {
	var items []WorkItemDTO
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		chunk, err := c.getWorkItemChunk(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		items = append(items, chunk...)
	}
	return items, nil
}

func (c *restClient) getWorkItemChunk(ctx context.Context, ids []int) ([]WorkItemDTO, error) {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = strconv.Itoa(id)
	}

	params := url.Values{}
	params.Set("ids", strings.Join(strIDs, ","))
	params.Set("api-version", c.cfg.APIVersion)
	u := fmt.Sprintf("%s/_apis/wit/workitems?%s", c.cfg.BaseURL, params.Encode())

	var result workItemListResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// GetUpdates fetches the revision history of a single work item, following
// continuation pages until exhausted.
func (c *restClient) GetUpdates(ctx context.Context, id int) ([]UpdateDTO, error) {
	const pageSize = 200
	var updates []UpdateDTO
	skip := 0
	for {
		params := url.Values{}
		params.Set("api-version", c.cfg.APIVersion)
		params.Set("$top", strconv.Itoa(pageSize))
		params.Set("$skip", strconv.Itoa(skip))
		u := fmt.Sprintf("%s/_apis/wit/workItems/%d/updates?%s", c.cfg.BaseURL, id, params.Encode())

		var result updateListResponse
		if err := c.do(ctx, http.MethodGet, u, nil, &result); err != nil {
			return nil, err
		}
		updates = append(updates, result.Value...)
		if len(result.Value) < pageSize {
			return updates, nil
		}
		skip += pageSize
	}
}
