// Package normalize provides utilities for normalizing dish names into cache
// keys and search terms.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// sizeWords are menu qualifiers that don't change the dish itself, so they
// are stripped before matching.
//
//nolint:gochecknoglobals // Static lookup table
var sizeWords = map[string]bool{
	"large": true, "small": true, "medium": true, "xl": true, "mini": true,
	"jumbo": true, "special": true, "deluxe": true, "premium": true,
}

// categories maps a food category to keywords that indicate it. Used to group
// similar dishes for cache matching and curation.
//
//nolint:gochecknoglobals // Static lookup table
var categories = map[string][]string{
	"pizza":    {"pizza", "margherita", "pepperoni", "hawaiian"},
	"burger":   {"burger", "cheeseburger", "hamburger", "patty"},
	"pasta":    {"pasta", "spaghetti", "penne", "lasagna", "ravioli", "fettuccine"},
	"salad":    {"salad", "caesar", "greek", "garden"},
	"sandwich": {"sandwich", "sub", "hoagie", "panini", "wrap"},
	"chicken":  {"chicken", "wings", "nuggets", "tenders"},
	"seafood":  {"fish", "salmon", "tuna", "shrimp", "lobster", "crab"},
	"soup":     {"soup", "chowder", "bisque", "broth"},
	"dessert":  {"cake", "pie", "ice cream", "brownie", "cookie", "pudding", "tiramisu"},
	"steak":    {"steak", "ribeye", "sirloin", "filet"},
	"asian":    {"sushi", "ramen", "pho", "pad thai", "curry", "stir fry"},
	"mexican":  {"taco", "burrito", "quesadilla", "enchilada", "fajita"},
}

//nolint:gochecknoglobals // Reused transformer chain
var foldTransformer = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Name normalizes a dish name for matching: lowercase, diacritics folded,
// punctuation removed, whitespace collapsed, size qualifiers dropped.
// "Crème  Brûlée (Large)" and "creme brulee" normalize identically.
func Name(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/':
			b.WriteByte(' ')
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if !sizeWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// Key derives the cache and coalescing key for a query. Two queries with the
// same normalized name and description always produce the same key.
func Key(name, description string) string {
	h := sha256.New()
	h.Write([]byte(Name(name)))
	h.Write([]byte{0})
	h.Write([]byte(Name(description)))
	return hex.EncodeToString(h.Sum(nil))
}

// Category returns the food category for a dish name, or "general" when no
// keyword matches.
func Category(name string) string {
	lower := strings.ToLower(name)
	for category, keywords := range categories {
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				return category
			}
		}
	}
	return "general"
}

// coreDishes resolves a token set to a canonical core dish term.
//
//nolint:gochecknoglobals // Static lookup table
var coreDishes = []struct {
	core   string
	tokens []string
}{
	{"cheeseburger", []string{"cheeseburger"}},
	{"hamburger", []string{"hamburger"}},
	{"burger", []string{"burger"}},
	{"pizza", []string{"pizza"}},
	{"pasta", []string{"pasta", "spaghetti", "penne"}},
	{"salad", []string{"salad"}},
	{"soup", []string{"soup"}},
	{"sandwich", []string{"sandwich"}},
}

// modifierPriority ranks descriptive tokens so the most informative ones
// survive the cut when building a search query.
//
//nolint:gochecknoglobals // Static lookup table
var modifierPriority = map[string]int{
	"beef": 3, "chicken": 3, "pork": 3, "fish": 3, "seafood": 3,
	"grilled": 2, "fried": 2, "baked": 2, "roasted": 2, "steamed": 2,
	"cheese": 2, "tomato": 1, "onion": 1, "lettuce": 1, "mushroom": 1,
}

// SearchTerms splits a dish name into a core dish term and up to three
// ranked modifiers for search query construction.
func SearchTerms(raw string) (core string, modifiers []string) {
	tokens := strings.Fields(Name(stripMeasurements(raw)))
	if len(tokens) == 0 {
		return "food", nil
	}

	core = tokens[0]
	tokenSet := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = true
	}
	if tokenSet["burger"] || tokenSet["cheeseburger"] || tokenSet["hamburger"] {
		switch {
		case tokenSet["cheese"] || tokenSet["cheeseburger"]:
			core = "cheeseburger"
		case tokenSet["hamburger"]:
			core = "hamburger"
		default:
			core = "burger"
		}
	} else {
		for _, cd := range coreDishes {
			matched := false
			for _, t := range cd.tokens {
				if tokenSet[t] {
					matched = true
					break
				}
			}
			if matched {
				core = cd.core
				break
			}
		}
	}

	stop := map[string]bool{
		core: true, "with": true, "and": true, "the": true,
		"a": true, "an": true, "of": true, "in": true, "on": true,
	}
	for _, t := range tokens {
		if !stop[t] {
			modifiers = append(modifiers, t)
		}
	}

	// Stable sort by priority, highest first.
	for i := 1; i < len(modifiers); i++ {
		for j := i; j > 0 && modifierPriority[modifiers[j]] > modifierPriority[modifiers[j-1]]; j-- {
			modifiers[j], modifiers[j-1] = modifiers[j-1], modifiers[j]
		}
	}
	if len(modifiers) > 3 {
		modifiers = modifiers[:3]
	}
	return core, modifiers
}

// measurementSuffixes are units that follow a number in menu text (180g,
// 12 oz, 12€).
//
//nolint:gochecknoglobals // Static lookup table
var measurementSuffixes = []string{
	"g", "kg", "oz", "ml", "l", "cm", "mm", "in", "inch", "€", "$", "£",
}

// stripMeasurements removes weight, volume, and price annotations.
func stripMeasurements(s string) string {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if isMeasurement(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func isMeasurement(token string) bool {
	t := strings.ToLower(strings.Trim(token, "(),"))
	if t == "" {
		return false
	}
	digits := 0
	for len(t) > 0 {
		r := rune(t[0])
		if r < '0' || r > '9' {
			if r == '.' && digits > 0 {
				t = t[1:]
				continue
			}
			break
		}
		digits++
		t = t[1:]
	}
	if digits == 0 {
		return false
	}
	if t == "" {
		return true
	}
	for _, suffix := range measurementSuffixes {
		if t == suffix {
			return true
		}
	}
	return false
}
