// Package match implements edit-distance matching of cocktail names.
package match

import "github.com/discochess/barback/internal/normalize"

// Candidate is a name offered for matching, identified by an opaque key.
type Candidate struct {
	Key  string
	Name string
}

// Match is the winning candidate and its distance to the target.
type Match struct {
	Key      string
	Name     string
	Distance int
}

// Distance returns the Levenshtein distance between a and b: the minimum
// number of single-rune insertions, deletions or substitutions turning a into b.
func Distance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// dist[i][j] is the distance between ra[:i] and rb[:j].
	dist := make([][]int, len(ra)+1)
	for i := range dist {
		dist[i] = make([]int, len(rb)+1)
		dist[i][0] = i
	}
	for j := 0; j <= len(rb); j++ {
		dist[0][j] = j
	}

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			dist[i][j] = min(
				dist[i-1][j]+1,      // deletion
				dist[i][j-1]+1,      // insertion
				dist[i-1][j-1]+cost, // substitution
			)
		}
	}
	return dist[len(ra)][len(rb)]
}

// PickBest returns the candidate whose normalized name is closest to target.
// Ties go to the candidate that appears first. The target is compared as given,
// so callers pass an already normalized target.
// It returns false when candidates is empty.
func PickBest(target string, candidates []Candidate) (Match, bool) {
	var (
		best  Match
		found bool
	)
	for _, c := range candidates {
		d := Distance(target, normalize.Name(c.Name))
		if !found || d < best.Distance {
			best = Match{Key: c.Key, Name: c.Name, Distance: d}
			found = true
		}
	}
	return best, found
}

// Threshold returns the largest distance accepted for a fuzzy match against a
// normalized target of the given length. It scales with the name but never
// drops below 2 so that short names still tolerate small typos.
func Threshold(targetLen int) int {
	return max(2, targetLen/3)
}
