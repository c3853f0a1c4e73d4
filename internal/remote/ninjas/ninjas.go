// Package ninjas implements remote.Catalog on top of the API Ninjas cocktail
// endpoint. The endpoint has no ids or images; records from it are keyed by
// name and enriched with images by the resolver.
package ninjas

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/discochess/barback/internal/normalize"
	"github.com/discochess/barback/internal/remote"
	"github.com/discochess/barback/internal/remote/transport"
)

// DefaultBaseURL is the API Ninjas v1 endpoint.
const DefaultBaseURL = "https://api.api-ninjas.com/v1"

// DefaultSeeds are the name queries used to assemble a listing.
var DefaultSeeds = []string{
	"margarita", "mojito", "martini", "old fashioned", "negroni",
	"daiquiri", "manhattan", "cosmopolitan", "mai tai", "paloma",
	"whiskey sour", "gimlet", "sidecar", "collins", "spritz",
}

var (
	// ErrNoAPIKey indicates the client was created without an API key.
	ErrNoAPIKey = errors.New("ninjas: no API key")

	// ErrMalformed indicates a response that is not a JSON array.
	ErrMalformed = errors.New("ninjas: malformed response")
)

// Compile-time check that Client implements remote.Catalog.
var _ remote.Catalog = (*Client)(nil)

// Client talks to the API Ninjas cocktail endpoint.
type Client struct {
	http    *transport.Client
	baseURL string
	apiKey  string
	seeds   []string
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithSeeds sets the name queries used by ListCocktails.
func WithSeeds(seeds []string) Option {
	return func(c *Client) { c.seeds = seeds }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client. Requests fail with ErrNoAPIKey if apiKey is empty.
func New(http *transport.Client, apiKey string, opts ...Option) *Client {
	c := &Client{
		http:    http,
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		seeds:   DefaultSeeds,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListCocktails queries each seed name in turn until limit distinct cocktails
// are collected. Cocktails are distinct by normalized name.
func (c *Client) ListCocktails(ctx context.Context, limit int) ([]remote.CatalogEntry, error) {
	var entries []remote.CatalogEntry
	seen := make(map[string]bool)
	for _, seed := range c.seeds {
		if len(entries) >= limit {
			break
		}
		batch, err := c.query(ctx, "name", seed)
		if err != nil {
			return nil, fmt.Errorf("listing cocktails for %q: %w", seed, err)
		}
		for _, e := range batch {
			key := normalize.Name(e.Name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			entries = append(entries, e)
			if len(entries) == limit {
				break
			}
		}
	}
	c.logger.Debug("listed cocktails", zap.Int("count", len(entries)), zap.Int("limit", limit))
	return entries, nil
}

// FilterByIngredient returns cocktails that use ingredient.
func (c *Client) FilterByIngredient(ctx context.Context, ingredient string) ([]remote.CatalogEntry, error) {
	entries, err := c.query(ctx, "ingredients", ingredient)
	if err != nil {
		return nil, fmt.Errorf("filtering by ingredient %q: %w", ingredient, err)
	}
	return entries, nil
}

func (c *Client) query(ctx context.Context, param, value string) ([]remote.CatalogEntry, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	u := c.baseURL + "/cocktail?" + url.Values{param: {value}}.Encode()
	body, err := c.http.Get(ctx, u, http.Header{"X-Api-Key": {c.apiKey}})
	if err != nil {
		return nil, err
	}
	return decode(body)
}

func decode(body []byte) ([]remote.CatalogEntry, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformed
	}
	list := gjson.ParseBytes(body)
	if !list.IsArray() {
		return nil, ErrMalformed
	}

	var entries []remote.CatalogEntry
	list.ForEach(func(_, item gjson.Result) bool {
		name := strings.TrimSpace(item.Get("name").String())
		if name == "" {
			return true
		}
		e := remote.CatalogEntry{
			Name:         name,
			Instructions: strings.TrimSpace(item.Get("instructions").String()),
			Servings:     int(item.Get("servings").Int()),
		}
		item.Get("ingredients").ForEach(func(_, ing gjson.Result) bool {
			if s := strings.TrimSpace(ing.String()); s != "" {
				e.Ingredients = append(e.Ingredients, s)
			}
			return true
		})
		entries = append(entries, e)
		return true
	})
	return entries, nil
}
