// Package record defines the cocktail record shared by the cache stores, the
// image resolver and the client.
package record

import (
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/discochess/barback/internal/normalize"
)

// DefaultCategory is used when no base spirit can be identified.
const DefaultCategory = "Cocktail"

// MaxRating is the upper bound of Cocktail.Rating.
const MaxRating = 5.0

// Cocktail is one resolved cocktail.
type Cocktail struct {
	// ID is unique within a store. See KeyFor for records without an external id.
	ID string `json:"id"`

	// Name is the display name as received from the source.
	Name string `json:"name"`

	// ImageRef is an image URL. Empty means no match was found.
	ImageRef string `json:"image_ref,omitempty"`

	// Category is a classification label, usually the base spirit.
	Category string `json:"category"`

	// Rating is a score in [0, MaxRating] used for ranking.
	Rating float64 `json:"rating"`

	// Ingredients are human-readable, possibly with quantities.
	Ingredients []string `json:"ingredients,omitempty"`

	Instructions string `json:"instructions,omitempty"`
	Servings     int    `json:"servings,omitempty"`

	// FetchedAt is set when the record is written by a fetch.
	FetchedAt time.Time `json:"fetched_at"`

	// LastAccessedAt is refreshed on reads and drives retention.
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// Clone returns a deep copy of c.
func (c Cocktail) Clone() Cocktail {
	if c.Ingredients != nil {
		c.Ingredients = append([]string(nil), c.Ingredients...)
	}
	return c
}

// KeyFor derives a deterministic id from a cocktail name, for sources that do
// not supply one. Names that normalize equally share a key.
func KeyFor(name string) string {
	return "n-" + strconv.FormatUint(xxhash.Sum64String(normalize.Name(name)), 16)
}

// SyntheticRating returns a stable rating in [3.0, 5.0] for an id.
func SyntheticRating(id string) float64 {
	step := xxhash.Sum64String(id) % 21
	return 3.0 + float64(step)/10
}

// baseSpirits maps ingredient keywords to categories, checked in order.
var baseSpirits = []struct {
	keyword  string
	category string
}{
	{"mezcal", "Mezcal"},
	{"tequila", "Tequila"},
	{"vodka", "Vodka"},
	{"gin", "Gin"},
	{"rum", "Rum"},
	{"cachaca", "Rum"},
	{"bourbon", "Whiskey"},
	{"rye", "Whiskey"},
	{"scotch", "Whiskey"},
	{"whiskey", "Whiskey"},
	{"whisky", "Whiskey"},
	{"cognac", "Brandy"},
	{"brandy", "Brandy"},
	{"pisco", "Brandy"},
}

// Classify returns the category of the first ingredient naming a base spirit,
// or DefaultCategory.
func Classify(ingredients []string) string {
	for _, ing := range ingredients {
		words := strings.Fields(normalize.Name(ing))
		for _, spirit := range baseSpirits {
			for _, w := range words {
				if w == spirit.keyword {
					return spirit.category
				}
			}
		}
	}
	return DefaultCategory
}
