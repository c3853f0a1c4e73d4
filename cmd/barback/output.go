package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/discochess/barback"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCocktails(w io.Writer, recs []barback.Cocktail, asJSON bool) error {
	if asJSON {
		if recs == nil {
			recs = []barback.Cocktail{}
		}
		return printJSON(w, recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "No cocktails found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tRATING\tIMAGE")
	for _, r := range recs {
		image := "-"
		if r.ImageRef != "" {
			image = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%s\n", r.ID, r.Name, r.Category, r.Rating, image)
	}
	return tw.Flush()
}

func printCocktail(w io.Writer, r barback.Cocktail, asJSON bool) error {
	if asJSON {
		return printJSON(w, r)
	}
	fmt.Fprintf(w, "ID:          %s\n", r.ID)
	fmt.Fprintf(w, "Name:        %s\n", r.Name)
	fmt.Fprintf(w, "Category:    %s\n", r.Category)
	fmt.Fprintf(w, "Rating:      %.1f\n", r.Rating)
	if r.ImageRef != "" {
		fmt.Fprintf(w, "Image:       %s\n", r.ImageRef)
	}
	if r.Servings > 0 {
		fmt.Fprintf(w, "Servings:    %d\n", r.Servings)
	}
	if len(r.Ingredients) > 0 {
		fmt.Fprintf(w, "Ingredients: %s\n", strings.Join(r.Ingredients, ", "))
	}
	if r.Instructions != "" {
		fmt.Fprintf(w, "Method:      %s\n", r.Instructions)
	}
	fmt.Fprintf(w, "Fetched:     %s\n", r.FetchedAt.Format(time.RFC3339))
	return nil
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
