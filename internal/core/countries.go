package core

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/biter777/countries"
)

// minFuzzyInputLen guards very short inputs from fuzzy matching; a two or
// three letter string is more likely a code or a fragment than a typo.
const minFuzzyInputLen = 4

// CountryResolver maps raw user input to a canonical country name using the
// ISO reference list, tolerating typos up to a configurable edit distance.
type CountryResolver struct {
	maxDistance int
	byName      map[string]string
	names       []string
}

// NewCountryResolver builds a resolver over the full ISO country list.
// maxDistance 0 disables fuzzy matching.
func NewCountryResolver(maxDistance int) *CountryResolver {
	r := &CountryResolver{
		maxDistance: maxDistance,
		byName:      make(map[string]string),
	}
	for _, cc := range countries.All() {
		if cc == countries.Unknown {
			continue
		}
		name := cc.String()
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := r.byName[key]; !ok {
			r.byName[key] = name
			r.names = append(r.names, key)
		}
	}
	// Stable order so fuzzy ties resolve deterministically.
	sort.Strings(r.names)
	return r
}

// Resolve returns the canonical country name for raw input, or false when no
// match is found. Exact and alias matches (codes, common variants) are tried
// before fuzzy matching.
func (r *CountryResolver) Resolve(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	key := strings.ToLower(trimmed)
	if name, ok := r.byName[key]; ok {
		return name, true
	}

	// ByName understands alpha-2/alpha-3 codes and common spelling variants.
	if cc := countries.ByName(trimmed); cc != countries.Unknown {
		return cc.String(), true
	}

	if r.maxDistance <= 0 || len([]rune(key)) < minFuzzyInputLen {
		return "", false
	}

	best := ""
	bestDist := r.maxDistance + 1
	for _, candidate := range r.names {
		d := levenshtein.ComputeDistance(key, candidate)
		if d < bestDist {
			bestDist = d
			best = candidate
		}
	}
	if best == "" {
		return "", false
	}
	return r.byName[best], true
}
