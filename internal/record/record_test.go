package record

import (
	"strings"
	"testing"
)

func TestKeyFor(t *testing.T) {
	a := KeyFor("Margarita")
	if !strings.HasPrefix(a, "n-") {
		t.Errorf("KeyFor() = %q, want n- prefix", a)
	}
	if b := KeyFor("  margarita (classic) "); b != a {
		t.Errorf("KeyFor() differs for equivalent names: %q vs %q", a, b)
	}
	if c := KeyFor("Mojito"); c == a {
		t.Errorf("KeyFor() collides for different names: %q", c)
	}
}

func TestSyntheticRating(t *testing.T) {
	for _, id := range []string{"", "11007", "n-abc", "17222", "margarita"} {
		r := SyntheticRating(id)
		if r < 3.0 || r > MaxRating {
			t.Errorf("SyntheticRating(%q) = %v, want within [3, 5]", id, r)
		}
		if again := SyntheticRating(id); again != r {
			t.Errorf("SyntheticRating(%q) not stable: %v vs %v", id, r, again)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		ingredients []string
		expected    string
	}{
		{"empty", nil, DefaultCategory},
		{"tequila", []string{"2 oz Tequila", "1 oz Lime juice"}, "Tequila"},
		{"first spirit wins", []string{"1 oz Gin", "1 oz Vodka"}, "Gin"},
		{"whiskey family", []string{"2 oz Bourbon", "Sugar"}, "Whiskey"},
		{"no spirit", []string{"Orange juice", "Soda water"}, DefaultCategory},
		{"substring is not a word", []string{"Ginger ale"}, DefaultCategory},
		{"light rum", []string{"Light rum", "Mint"}, "Rum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.ingredients); got != tt.expected {
				t.Errorf("Classify(%q) = %q, want %q", tt.ingredients, got, tt.expected)
			}
		})
	}
}

func TestCocktail_Clone(t *testing.T) {
	orig := Cocktail{ID: "1", Ingredients: []string{"Gin"}}
	cp := orig.Clone()
	cp.Ingredients[0] = "Rum"
	if orig.Ingredients[0] != "Gin" {
		t.Error("Clone() shares the ingredient slice")
	}
}
