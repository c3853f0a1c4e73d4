package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/discochess/barback"
)

func TestFormatAge(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{72 * time.Hour, "3d ago"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.d); got != tt.want {
			t.Errorf("formatAge(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestAtLeast(t *testing.T) {
	recs := []barback.Cocktail{
		{ID: "a", Rating: 4.8},
		{ID: "b", Rating: 3.2},
		{ID: "c", Rating: 4.0},
	}
	got := atLeast(recs, 4.0)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("atLeast() = %+v, want [a c]", got)
	}
	if len(recs) != 3 || recs[1].ID != "b" {
		t.Error("atLeast() modified its input")
	}
}

func TestPrintCocktails(t *testing.T) {
	recs := []barback.Cocktail{
		{ID: "11007", Name: "Margarita", Category: "Tequila", Rating: 4.5, ImageRef: "img"},
	}

	var buf bytes.Buffer
	if err := printCocktails(&buf, recs, false); err != nil {
		t.Fatalf("printCocktails() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Margarita") || !strings.Contains(buf.String(), "4.5") {
		t.Errorf("printCocktails() = %q", buf.String())
	}

	buf.Reset()
	if err := printCocktails(&buf, nil, true); err != nil {
		t.Fatalf("printCocktails() error = %v", err)
	}
	var decoded []barback.Cocktail
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded == nil || len(decoded) != 0 {
		t.Errorf("printCocktails(nil) JSON = %q, want []", buf.String())
	}
}
