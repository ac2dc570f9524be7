// Package registry provides cached, rate-limit-aware clients for the
// companies register, its document API and the charity register.
package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	fastshot "github.com/opus-domini/fast-shot"
	"go.uber.org/zap"

	"github.com/scrutinise/ownership-engine/pkg/retry"
)

const (
	defaultCacheTTL  = 24 * time.Hour
	defaultTimeout   = 30 * time.Second
	defaultBackoff   = 1500 * time.Millisecond
	rateLimitRetries = 3
)

// Options configures a registry client.
type Options struct {
	BaseURL string
	APIKey  string

	// Cache is optional; nil disables response caching.
	Cache    Cache
	CacheTTL time.Duration

	Timeout time.Duration

	// RateLimitBackoff is the initial delay after a 429. Successive 429s
	// on the same request double it.
	RateLimitBackoff time.Duration

	Logger *zap.Logger
}

func (o *Options) applyDefaults(defaultBase string) {
	if o.BaseURL == "" {
		o.BaseURL = defaultBase
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = defaultCacheTTL
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.RateLimitBackoff <= 0 {
		o.RateLimitBackoff = defaultBackoff
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// gateway is the shared HTTP plumbing behind the registry clients:
// response caching, 429 backoff and bounded retries on transient errors.
type gateway struct {
	http     fastshot.ClientHttpMethods
	base     string
	headers  map[string]string
	cache    Cache
	ttl      time.Duration
	backoff  time.Duration
	retryCfg *retry.Config
	logger   *zap.Logger
}

func newGateway(opts Options, headers map[string]string, basicAuthKey string) *gateway {
	all := map[string]string{"Accept": "application/json"}
	for k, v := range headers {
		all[k] = v
	}
	if basicAuthKey != "" {
		all["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(basicAuthKey+":"))
	}

	client := fastshot.NewClient(opts.BaseURL).
		Config().SetTimeout(opts.Timeout).
		Header().AddAll(all).
		Build()

	retryCfg := retry.DefaultConfig()
	retryCfg.InitialDelay = opts.RateLimitBackoff

	return &gateway{
		http:     client,
		base:     strings.TrimSuffix(opts.BaseURL, "/"),
		headers:  headers,
		cache:    opts.Cache,
		ttl:      opts.CacheTTL,
		backoff:  opts.RateLimitBackoff,
		retryCfg: retryCfg,
		logger:   opts.Logger,
	}
}

// getJSON performs a cached GET and unmarshals the response body.
func (g *gateway) getJSON(ctx context.Context, path string, params map[string]string, target any) error {
	fullURL := buildURL(g.base, path, params)
	key := CacheKey(fullURL, g.headers)

	if g.cache != nil {
		if body, ok, err := g.cache.Get(ctx, key); err != nil {
			g.logger.Warn("cache read failed", zap.Error(err))
		} else if ok {
			return json.Unmarshal(body, target)
		}
	}

	var body []byte
	err := retry.DoIfRetryable(ctx, g.retryCfg, func() error {
		b, err := g.fetch(ctx, path, params, "")
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return err
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, body, g.ttl); err != nil {
			g.logger.Warn("cache write failed", zap.Error(err))
		}
	}
	return json.Unmarshal(body, target)
}

// getRaw performs an uncached GET, used for binary document content.
func (g *gateway) getRaw(ctx context.Context, path string, accept string) ([]byte, error) {
	var body []byte
	err := retry.DoIfRetryable(ctx, g.retryCfg, func() error {
		b, err := g.fetch(ctx, path, nil, accept)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	return body, err
}

// fetch issues one GET, absorbing up to rateLimitRetries 429 responses
// with doubling backoff before giving up.
func (g *gateway) fetch(ctx context.Context, path string, params map[string]string, accept string) ([]byte, error) {
	delay := g.backoff

	for attempt := 0; ; attempt++ {
		req := g.http.GET(path)
		req.Context().Set(ctx)
		if len(params) > 0 {
			req.Query().AddParams(params)
		}
		if accept != "" {
			req.Header().Set("Accept", accept)
		}

		res, err := req.Send()
		if err != nil {
			return nil, &Error{Kind: KindTransient, URL: path, Message: "request failed", Cause: err}
		}

		raw := res.RawResponse
		if raw.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, raw.Body) //nolint:errcheck
			raw.Body.Close()
			if attempt >= rateLimitRetries {
				return nil, &Error{Kind: KindRateLimited, StatusCode: raw.StatusCode, URL: path}
			}
			g.logger.Warn("rate limited, backing off",
				zap.String("path", path),
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt+1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
			continue
		}

		body, readErr := io.ReadAll(raw.Body)
		raw.Body.Close()

		if raw.StatusCode == http.StatusOK {
			if readErr != nil {
				return nil, &Error{Kind: KindTransient, URL: path, Message: "read body", Cause: readErr}
			}
			return body, nil
		}

		return nil, &Error{
			Kind:       kindForStatus(raw.StatusCode),
			StatusCode: raw.StatusCode,
			URL:        path,
		}
	}
}

// buildURL joins base, path and sorted query parameters so equivalent
// requests always cache under the same key.
func buildURL(base, path string, params map[string]string) string {
	full := base + path
	if len(params) == 0 {
		return full
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := url.Values{}
	for _, k := range keys {
		q.Set(k, params[k])
	}
	return full + "?" + q.Encode()
}
