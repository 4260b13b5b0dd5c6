package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/chirp/internal/app/domain/author"
	"github.com/R3E-Network/chirp/internal/app/metrics"
	"github.com/R3E-Network/chirp/internal/httputil"
	"github.com/R3E-Network/chirp/internal/logging"
)

const (
	batchSize        = 100
	defaultCacheSize = 1024
	defaultCacheTTL  = 5 * time.Minute
)

// ClientConfig configures the identity provider backend API client.
type ClientConfig struct {
	BaseURL    string
	SecretKey  string
	Timeout    time.Duration
	MaxRetries int
	CacheSize  int
	CacheTTL   time.Duration
}

// Client reads users from the identity provider's backend API. Resolved
// authors are cached by ID.
type Client struct {
	api   *httputil.APIClient
	cache *expirable.LRU[string, author.Author]
	log   *logging.Logger
}

var _ Directory = (*Client)(nil)

// NewClient builds a Client.
func NewClient(cfg ClientConfig, log *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("identity base url is required")
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("identity secret key is required")
	}
	if log == nil {
		log = logging.NewDefault("identity")
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &Client{
		api: httputil.NewAPIClient(httputil.APIClientConfig{
			BaseURL:    cfg.BaseURL,
			BearerKey:  cfg.SecretKey,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}),
		cache: expirable.NewLRU[string, author.Author](size, nil, ttl),
		log:   log,
	}, nil
}

// user is the subset of the provider's user object we read.
type user struct {
	ID              string  `json:"id"`
	Username        *string `json:"username"`
	ImageURL        string  `json:"image_url"`
	ProfileImageURL string  `json:"profile_image_url"`
	CreatedAt       int64   `json:"created_at"`
}

func (u user) author() author.Author {
	a := author.Author{ID: u.ID, ProfileImageURL: u.ImageURL}
	if u.Username != nil {
		a.Username = *u.Username
	}
	if a.ProfileImageURL == "" {
		a.ProfileImageURL = u.ProfileImageURL
	}
	if u.CreatedAt > 0 {
		a.CreatedAt = time.UnixMilli(u.CreatedAt).UTC()
	}
	return a
}

// UsersByID returns the known users among ids, in first-seen order.
func (c *Client) UsersByID(ctx context.Context, ids []string) ([]author.Author, error) {
	found := make(map[string]author.Author, len(ids))
	var misses []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if a, ok := c.cache.Get(id); ok {
			found[id] = a
			continue
		}
		misses = append(misses, id)
	}
	metrics.RecordIdentityLookup("hit", len(found))

	for start := 0; start < len(misses); start += batchSize {
		end := start + batchSize
		if end > len(misses) {
			end = len(misses)
		}
		query := url.Values{
			"user_id": misses[start:end],
			"limit":   {strconv.Itoa(batchSize)},
		}
		users, err := c.listUsers(ctx, query)
		if err != nil {
			metrics.RecordIdentityLookup("error", end-start)
			return nil, err
		}
		metrics.RecordIdentityLookup("miss", end-start)
		for _, u := range users {
			a := u.author()
			c.cache.Add(a.ID, a)
			found[a.ID] = a
		}
	}

	out := make([]author.Author, 0, len(found))
	for _, id := range ids {
		if a, ok := found[id]; ok {
			out = append(out, a)
			delete(found, id)
		}
	}
	return out, nil
}

// UserByUsername looks a user up by exact username.
func (c *Client) UserByUsername(ctx context.Context, username string) (author.Author, error) {
	users, err := c.listUsers(ctx, url.Values{
		"username": {username},
		"limit":    {"1"},
	})
	if err != nil {
		metrics.RecordIdentityLookup("error", 1)
		return author.Author{}, err
	}
	if len(users) == 0 {
		return author.Author{}, fmt.Errorf("username %s: %w", username, ErrUserNotFound)
	}
	metrics.RecordIdentityLookup("miss", 1)
	a := users[0].author()
	c.cache.Add(a.ID, a)
	return a, nil
}

func (c *Client) listUsers(ctx context.Context, query url.Values) ([]user, error) {
	resp, err := c.api.Get(ctx, "/v1/users?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("identity provider request: %w", err)
	}

	var users []user
	if err := httputil.DecodeResponse(resp, &users); err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) {
			msg := providerMessage(statusErr.Body)
			c.log.WithField("status", statusErr.StatusCode).
				WithField("provider_message", msg).
				Warn("identity provider rejected request")
			return nil, fmt.Errorf("identity provider: %s (status %d)", msg, statusErr.StatusCode)
		}
		return nil, fmt.Errorf("identity provider response: %w", err)
	}
	return users, nil
}

// providerMessage pulls the first error message out of the provider's error
// envelope, falling back to the raw body.
func providerMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "errors.0.long_message"); msg.Exists() && msg.String() != "" {
		return msg.String()
	}
	if msg := gjson.GetBytes(body, "errors.0.message"); msg.Exists() && msg.String() != "" {
		return msg.String()
	}
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return "empty response"
	}
	return raw
}
