package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "daybrief/internal/log"
)

const (
	defaultFetchTimeout = 15 * time.Second
	userAgent           = "daybrief/1 (+ics)"
)

// ErrNoCachedBody is returned on a 304 response without a cached payload.
var ErrNoCachedBody = errors.New("received 304 Not Modified but no cached body available")

// Source represents a single ICS subscription source.
type Source struct {
	// ID is an internal identifier (e.g., config ICS ID).
	ID string
	// Name is the human label, used for logging only.
	Name string
	// URL is the ICS endpoint. file:// URLs are read from disk.
	URL string
}

// FetchResult is the payload obtained for one source.
type FetchResult struct {
	Source Source
	Body   []byte
	// FromCache is set when Body came from disk, after a 304 or a failed
	// fetch.
	FromCache bool
}

// cacheEntry is the revalidation metadata stored next to a cached feed.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads ICS feeds for the calendar provider. Every feed is
// fetched once per briefing, so a conditional GET against the last copy on
// disk keeps repeated runs cheap and lets a briefing survive a flaky feed.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// NewFetcher creates a Fetcher caching feeds under cacheDir, for example
// "/var/lib/daybrief/ics-cache".
func NewFetcher(cacheDir string, opts ...FetcherOption) *Fetcher {
	if cacheDir == "" {
		// Relative dir so development runs work without root permissions.
		cacheDir = "./var/ics-cache"
	}
	f := &Fetcher{
		client:   &http.Client{Timeout: defaultFetchTimeout},
		cacheDir: cacheDir,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll fetches all given sources in order. Per-source failures are
// logged and joined into the returned error; results only contain sources
// that produced a body (from network or cache).
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, error) {
	results := make([]FetchResult, 0, len(sources))
	var errs []error

	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("ics source %s: %w", src.ID, err))
			appLog.Error("ics fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		results = append(results, res)
	}

	return results, errors.Join(errs...)
}

// FetchOne fetches a single ICS source. HTTP feeds are revalidated with
// ETag / Last-Modified against a disk cache; when the feed is unreachable or
// answers with an error status the cached copy is served instead.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}
	if u, err := url.Parse(src.URL); err == nil && u.Scheme == "file" {
		body, err := os.ReadFile(u.Path)
		if err != nil {
			return FetchResult{}, err
		}
		return FetchResult{Source: src, Body: body}, nil
	}

	fc := f.cacheFor(src.URL)
	cached := fc.load()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL(src.URL), nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")
	cached.conditional(req.Header)

	appLog.Debug("ics fetch start", "id", src.ID, "url", redactURL(src.URL), "cached", cached.ok())

	resp, err := f.client.Do(req)
	if err != nil {
		return cached.fallback(src, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return cached.fallback(src, err)
		}
		fresh := cachedFeed{
			meta: cacheEntry{
				URL:          src.URL,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
				UpdatedAt:    time.Now().UTC(),
			},
			body: body,
		}
		if err := fc.store(fresh); err != nil {
			appLog.Error("ics cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
		}
		appLog.Info("ics fetch success", "id", src.ID, "url", redactURL(src.URL), "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if !cached.ok() {
			return FetchResult{}, ErrNoCachedBody
		}
		appLog.Info("ics feed not modified", "id", src.ID, "url", redactURL(src.URL), "cached_at", cached.meta.UpdatedAt)
		return cached.result(src), nil

	default:
		return cached.fallback(src, fmt.Errorf("unexpected status %s", resp.Status))
	}
}

// feedCache is the on-disk copy of one feed: <key>.ics holds the payload and
// <key>.json the validators it was served with.
type feedCache struct {
	bodyPath string
	metaPath string
}

// cachedFeed is what a feedCache held when FetchOne started.
type cachedFeed struct {
	meta cacheEntry
	body []byte
}

func (f *Fetcher) cacheFor(rawURL string) feedCache {
	sum := sha256.Sum256([]byte(rawURL))
	key := hex.EncodeToString(sum[:12])
	return feedCache{
		bodyPath: filepath.Join(f.cacheDir, key+".ics"),
		metaPath: filepath.Join(f.cacheDir, key+".json"),
	}
}

// load reads the cached copy. A missing or corrupt cache yields an empty
// cachedFeed; validators are dropped when there is no body to revalidate.
func (fc feedCache) load() cachedFeed {
	body, err := os.ReadFile(fc.bodyPath)
	if err != nil || len(body) == 0 {
		return cachedFeed{}
	}
	c := cachedFeed{body: body}
	if data, err := os.ReadFile(fc.metaPath); err == nil {
		_ = json.Unmarshal(data, &c.meta)
	}
	return c
}

// store replaces the cached copy. The body is renamed into place before the
// metadata so validators never describe a payload that is not on disk.
func (fc feedCache) store(c cachedFeed) error {
	if err := os.MkdirAll(filepath.Dir(fc.bodyPath), 0o700); err != nil {
		return err
	}
	if err := writeFileAtomic(fc.bodyPath, c.body); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&c.meta, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(fc.metaPath, data)
}

func (c cachedFeed) ok() bool { return len(c.body) > 0 }

// conditional adds revalidation headers for the cached copy, if any.
func (c cachedFeed) conditional(h http.Header) {
	if !c.ok() {
		return
	}
	if c.meta.ETag != "" {
		h.Set("If-None-Match", c.meta.ETag)
	}
	if c.meta.LastModified != "" {
		h.Set("If-Modified-Since", c.meta.LastModified)
	}
}

func (c cachedFeed) result(src Source) FetchResult {
	return FetchResult{Source: src, Body: c.body, FromCache: true}
}

// fallback serves the cached copy after a failed fetch, or returns cause
// when nothing is cached.
func (c cachedFeed) fallback(src Source, cause error) (FetchResult, error) {
	if !c.ok() {
		return FetchResult{}, cause
	}
	appLog.Warn("ics fetch failed, using cached body", "id", src.ID, "url", redactURL(src.URL), "err", cause, "cached_at", c.meta.UpdatedAt)
	return c.result(src), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".daybrief-ics-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// requestURL maps webcal:// subscription links to https.
func requestURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.EqualFold(u.Scheme, "webcal") {
		return raw
	}
	u.Scheme = "https"
	return u.String()
}

// redactURL keeps only scheme and host of an ICS URL for logging; private
// calendar links carry their secret in the path or query.
//
//	https://example.com/path/to/private.ics?token=abcd -> https://example.com/...(redacted)
func redactURL(raw string) string {
	const redactedSuffix = "/...(redacted)"
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + redactedSuffix
}
