// Package remote defines the external lookup capabilities the cache relies on.
//
// Responses from the upstream APIs are loosely shaped (missing fields, null
// lists, sentinel strings). Adapters validate them once while decoding and hand
// out only the tagged values below.
package remote

import (
	"context"
	"errors"
)

// ErrUnavailable indicates that a remote capability could not be reached.
var ErrUnavailable = errors.New("remote: unavailable")

// Drink is a name search hit. Adapters only return drinks that have both a
// name and an image reference.
type Drink struct {
	Name     string
	ImageRef string
}

// ImageSearcher looks up drinks and their images by name.
type ImageSearcher interface {
	// SearchByName returns drinks matching name. No hits is an empty slice.
	SearchByName(ctx context.Context, name string) ([]Drink, error)

	// SearchByFirstLetter returns drinks whose name starts with letter.
	SearchByFirstLetter(ctx context.Context, letter string) ([]Drink, error)
}

// CatalogEntry is a cocktail from a remote catalog.
type CatalogEntry struct {
	// ID is empty when the catalog has no stable identifiers.
	ID           string
	Name         string
	ImageRef     string
	Ingredients  []string
	Instructions string
	Servings     int
}

// Catalog lists cocktails from a remote source.
type Catalog interface {
	// ListCocktails returns up to limit cocktails.
	ListCocktails(ctx context.Context, limit int) ([]CatalogEntry, error)

	// FilterByIngredient returns cocktails containing the ingredient.
	FilterByIngredient(ctx context.Context, ingredient string) ([]CatalogEntry, error)
}
