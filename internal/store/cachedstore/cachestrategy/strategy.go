// Package cachestrategy defines cache eviction strategy interfaces.
package cachestrategy

import "github.com/discochess/barback/internal/record"

// Strategy defines the interface for cache eviction strategies.
type Strategy interface {
	Get(key string) (record.Cocktail, bool)
	Add(key string, value record.Cocktail) bool
	Remove(key string) bool
	Purge()
	Len() int
}
