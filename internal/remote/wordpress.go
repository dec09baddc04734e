package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/launchpress/contentsync/internal/domain"
	"github.com/launchpress/contentsync/internal/syncx"
)

// route describes how one item type maps onto the wp/v2 REST namespace.
type route struct {
	path string
	// idField names the field that identifies an item when the API does
	// not return a numeric "id" (plugins use "plugin", themes use
	// "stylesheet"). Empty means the API's own "id" field.
	idField string
	// singleton marks collections that are a single settings object
	// rather than a paged list.
	singleton bool
}

var routes = map[domain.ItemType]route{
	domain.TypePosts:    {path: "posts"},
	domain.TypePages:    {path: "pages"},
	domain.TypeUsers:    {path: "users"},
	domain.TypeSettings: {path: "settings", singleton: true},
	domain.TypePlugins:  {path: "plugins", idField: "plugin"},
	domain.TypeThemes:   {path: "themes", idField: "stylesheet"},
	domain.TypeMedia:    {path: "media"},
	domain.TypeComments: {path: "comments"},
}

// WordPressConfig configures the WordPress REST adapter.
type WordPressConfig struct {
	BaseURL string // site root, e.g. https://example.com
	// Application-password credentials (HTTP Basic).
	Username    string
	AppPassword string

	Timeout    time.Duration // per-request timeout, default 30s
	MaxRetries uint64        // retry attempts on transient failure, default 4
	RateLimit  rate.Limit    // outbound requests per second, default 10
}

// WordPress is the Adapter implementation for a WordPress site's wp/v2
// REST API. Transient failures (network errors, 5xx, 429) are retried with
// exponential backoff; a client-side rate limiter keeps the engine from
// hammering the site during large reconciliations.
type WordPress struct {
	cfg        WordPressConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
}

// NewWordPress creates a WordPress REST adapter.
func NewWordPress(cfg WordPressConfig) *WordPress {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 4
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	return &WordPress{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(cfg.RateLimit, int(cfg.RateLimit)),
		maxRetries: cfg.MaxRetries,
	}
}

func (w *WordPress) ListItems(ctx context.Context, typ domain.ItemType, page, pageSize int) ([]domain.Item, error) {
	rt, ok := routes[typ]
	if !ok {
		return nil, domain.ErrUnknownType
	}

	if rt.singleton {
		// The settings endpoint is one object, not a list.
		if page > 1 {
			return nil, nil
		}
		item, err := w.getObject(ctx, w.endpoint(rt.path, ""), nil)
		if err != nil {
			return nil, err
		}
		item["id"] = "settings"
		return []domain.Item{item}, nil
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(pageSize))

	body, status, err := w.do(ctx, http.MethodGet, w.endpoint(rt.path, "")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	// WordPress answers 400 rest_post_invalid_page_number past the last
	// page; treat it as end-of-collection.
	if status == http.StatusBadRequest && page > 1 {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list %s page %d: unexpected status %d", typ, page, status)
	}

	items, err := decodeCollection(body)
	if err != nil {
		return nil, fmt.Errorf("list %s page %d: %w", typ, page, err)
	}
	for _, item := range items {
		normalizeID(item, rt)
	}
	return items, nil
}

func (w *WordPress) GetItem(ctx context.Context, typ domain.ItemType, id string) (domain.Item, error) {
	rt, ok := routes[typ]
	if !ok {
		return nil, domain.ErrUnknownType
	}

	endpoint := w.endpoint(rt.path, id)
	if rt.singleton {
		endpoint = w.endpoint(rt.path, "")
	}

	body, status, err := w.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.ErrItemNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get %s/%s: unexpected status %d", typ, id, status)
	}

	var item domain.Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", typ, id, err)
	}
	normalizeID(item, rt)
	if rt.singleton {
		item["id"] = "settings"
	}
	return item, nil
}

func (w *WordPress) CreateItem(ctx context.Context, typ domain.ItemType, item domain.Item) (domain.Item, error) {
	rt, ok := routes[typ]
	if !ok {
		return nil, domain.ErrUnknownType
	}
	return w.write(ctx, typ, w.endpoint(rt.path, ""), item, rt)
}

func (w *WordPress) UpdateItem(ctx context.Context, typ domain.ItemType, id string, item domain.Item) (domain.Item, error) {
	rt, ok := routes[typ]
	if !ok {
		return nil, domain.ErrUnknownType
	}
	endpoint := w.endpoint(rt.path, id)
	if rt.singleton {
		endpoint = w.endpoint(rt.path, "")
	}
	return w.write(ctx, typ, endpoint, item, rt)
}

func (w *WordPress) write(ctx context.Context, typ domain.ItemType, endpoint string, item domain.Item, rt route) (domain.Item, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}

	body, status, err := w.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.ErrItemNotFound
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("write %s: unexpected status %d", typ, status)
	}

	var out domain.Item
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", typ, err)
	}
	normalizeID(out, rt)
	if rt.singleton {
		out["id"] = "settings"
	}
	return out, nil
}

func (w *WordPress) endpoint(path, id string) string {
	base := w.cfg.BaseURL + "/wp-json/wp/v2/" + path
	if id != "" {
		base += "/" + url.PathEscape(id)
	}
	return base
}

func (w *WordPress) getObject(ctx context.Context, endpoint string, _ url.Values) (domain.Item, error) {
	body, status, err := w.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", endpoint, status)
	}
	var item domain.Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// do performs one HTTP call with rate limiting and exponential-backoff
// retries. Only transport errors, 5xx and 429 are retried; other statuses
// are returned to the caller for interpretation.
func (w *WordPress) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, int, error) {
	var respBody []byte
	var respStatus int

	op := func() error {
		if err := w.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if w.cfg.Username != "" {
			req.SetBasicAuth(w.cfg.Username, w.cfg.AppPassword)
		}

		resp, err := w.httpClient.Do(req)
		if err != nil {
			log.Debug().Err(err).Str("endpoint", endpoint).Msg("remote call failed, will retry")
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			log.Debug().Int("status", resp.StatusCode).Str("endpoint", endpoint).
				Msg("remote returned retryable status")
			return fmt.Errorf("remote status %d", resp.StatusCode)
		}

		respBody = body
		respStatus = resp.StatusCode
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), w.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	return respBody, respStatus, nil
}

func decodeCollection(body []byte) ([]domain.Item, error) {
	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	items := make([]domain.Item, 0, len(raw))
	for _, m := range raw {
		items = append(items, domain.Item(m))
	}
	return items, nil
}

// normalizeID makes sure every snapshot carries a string-convertible "id".
// Plugins and themes identify items by slug fields instead.
func normalizeID(item domain.Item, rt route) {
	if rt.idField == "" {
		return
	}
	if _, ok := item["id"]; ok {
		return
	}
	if slug, ok := syncx.GetString(item, rt.idField); ok {
		item["id"] = slug
	}
}
