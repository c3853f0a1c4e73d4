// Package cocktaildb implements the remote capabilities on top of
// TheCocktailDB JSON API.
package cocktaildb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/discochess/barback/internal/remote"
	"github.com/discochess/barback/internal/remote/transport"
)

// DefaultBaseURL is the public free-tier endpoint.
const DefaultBaseURL = "https://www.thecocktaildb.com/api/json/v1/1"

// maxIngredients is the number of strIngredientN fields per drink.
const maxIngredients = 15

// ErrMalformed indicates a response that is not valid JSON.
var ErrMalformed = errors.New("cocktaildb: malformed response")

// Compile-time checks that Client implements the remote interfaces.
var (
	_ remote.ImageSearcher = (*Client)(nil)
	_ remote.Catalog       = (*Client)(nil)
)

// Client talks to TheCocktailDB.
type Client struct {
	http    *transport.Client
	baseURL string
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL, e.g. for a paid API key path.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client using the given transport.
func New(http *transport.Client, opts ...Option) *Client {
	c := &Client{
		http:    http,
		baseURL: DefaultBaseURL,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchByName returns drinks whose name matches name.
func (c *Client) SearchByName(ctx context.Context, name string) ([]remote.Drink, error) {
	drinks, err := c.query(ctx, "search.php", "s", name)
	if err != nil {
		return nil, fmt.Errorf("searching by name %q: %w", name, err)
	}
	return toDrinks(drinks), nil
}

// SearchByFirstLetter returns drinks whose name starts with letter.
func (c *Client) SearchByFirstLetter(ctx context.Context, letter string) ([]remote.Drink, error) {
	drinks, err := c.query(ctx, "search.php", "f", letter)
	if err != nil {
		return nil, fmt.Errorf("searching by letter %q: %w", letter, err)
	}
	return toDrinks(drinks), nil
}

// ListCocktails walks the alphabet with first-letter searches until limit
// cocktails are collected.
func (c *Client) ListCocktails(ctx context.Context, limit int) ([]remote.CatalogEntry, error) {
	var entries []remote.CatalogEntry
	seen := make(map[string]bool)
	for letter := 'a'; letter <= 'z' && len(entries) < limit; letter++ {
		drinks, err := c.query(ctx, "search.php", "f", string(letter))
		if err != nil {
			return nil, fmt.Errorf("listing cocktails at %q: %w", letter, err)
		}
		for _, d := range drinks {
			e, ok := toEntry(d)
			if !ok || seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			entries = append(entries, e)
			if len(entries) == limit {
				break
			}
		}
	}
	c.logger.Debug("listed cocktails", zap.Int("count", len(entries)), zap.Int("limit", limit))
	return entries, nil
}

// FilterByIngredient returns cocktails that use ingredient. The filter
// endpoint only returns ids, names and images.
func (c *Client) FilterByIngredient(ctx context.Context, ingredient string) ([]remote.CatalogEntry, error) {
	drinks, err := c.query(ctx, "filter.php", "i", ingredient)
	if err != nil {
		return nil, fmt.Errorf("filtering by ingredient %q: %w", ingredient, err)
	}
	entries := make([]remote.CatalogEntry, 0, len(drinks))
	for _, d := range drinks {
		if e, ok := toEntry(d); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// query calls an endpoint and returns the elements of its "drinks" array.
// A null, missing or non-array "drinks" value means no results.
func (c *Client) query(ctx context.Context, endpoint, param, value string) ([]gjson.Result, error) {
	u := c.baseURL + "/" + endpoint + "?" + url.Values{param: {value}}.Encode()
	body, err := c.http.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	return decodeDrinks(body)
}

func decodeDrinks(body []byte) ([]gjson.Result, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformed
	}
	list := gjson.GetBytes(body, "drinks")
	if !list.IsArray() {
		return nil, nil
	}
	return list.Array(), nil
}

func toDrinks(raw []gjson.Result) []remote.Drink {
	drinks := make([]remote.Drink, 0, len(raw))
	for _, d := range raw {
		name := strings.TrimSpace(d.Get("strDrink").String())
		image := strings.TrimSpace(d.Get("strDrinkThumb").String())
		if name == "" || image == "" {
			continue
		}
		drinks = append(drinks, remote.Drink{Name: name, ImageRef: image})
	}
	return drinks
}

func toEntry(d gjson.Result) (remote.CatalogEntry, bool) {
	e := remote.CatalogEntry{
		ID:           strings.TrimSpace(d.Get("idDrink").String()),
		Name:         strings.TrimSpace(d.Get("strDrink").String()),
		ImageRef:     strings.TrimSpace(d.Get("strDrinkThumb").String()),
		Instructions: strings.TrimSpace(d.Get("strInstructions").String()),
	}
	if e.Name == "" {
		return remote.CatalogEntry{}, false
	}
	for i := 1; i <= maxIngredients; i++ {
		n := strconv.Itoa(i)
		ingredient := strings.TrimSpace(d.Get("strIngredient" + n).String())
		if ingredient == "" {
			continue
		}
		if measure := strings.TrimSpace(d.Get("strMeasure" + n).String()); measure != "" {
			ingredient = measure + " " + ingredient
		}
		e.Ingredients = append(e.Ingredients, ingredient)
	}
	return e, true
}
