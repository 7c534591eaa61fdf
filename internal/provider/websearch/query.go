package websearch

import (
	"net/url"
	"strings"
)

// foodDomains are sites that reliably host plated restaurant photos. The
// first strict search pass restricts results to the top entries.
//
//nolint:gochecknoglobals // Static lookup table
var foodDomains = []string{
	"wolt.com",
	"seriouseats.com", "bonappetit.com", "epicurious.com", "bbcgoodfood.com",
	"allrecipes.com", "foodnetwork.com", "tasteatlas.com", "justonecookbook.com",
	"thespruceeats.com", "foodgawker.com", "delish.com", "food52.com",
	"thekitchn.com", "simplyrecipes.com", "cookinglight.com", "eatingwell.com",
	"foodandwine.com", "saveur.com", "finecooking.com", "myrecipes.com",
	"ubereats.com", "doordash.com", "grubhub.com",
}

// sweetTerms mark dessert imagery, excluded when searching savory dishes.
//
//nolint:gochecknoglobals // Static lookup table
var sweetTerms = []string{
	"dessert", "tart", "pie", "cake", "brownie", "cookie", "pudding",
	"fruit", "sweet", "mousse", "cheesecake", "galette", "cobbler",
	"pastry", "cupcake", "donut", "muffin",
}

// objectTerms mark non-food product imagery that image search sometimes
// returns for ambiguous dish names.
//
//nolint:gochecknoglobals // Static lookup table
var objectTerms = []string{
	"watch", "wristwatch", "smartwatch", "chronograph", "bracelet", "strap",
	"clock", "timepiece", "jewelry", "necklace", "earring", "earrings",
	"handbag", "purse", "backpack", "wallet", "shoe", "sneaker", "boot",
	"clothing", "apparel", "outfit", "garment", "fashion", "runway",
	"phone", "smartphone", "tablet", "laptop", "computer", "keyboard",
}

// unwantedTerms mark stock photos and non-dish restaurant content.
//
//nolint:gochecknoglobals // Static lookup table
var unwantedTerms = []string{
	"stock photo", "clipart", "vector", "menu", "price list",
	"restaurant sign", "chef portrait", "kitchen staff", "dining room",
	"table setting", "cutlery", "advertisement", "flyer", "brochure",
	"face", "person", "people", "chef", "waiter",
}

// sweetCores are dish cores that mark the item itself as a dessert.
//
//nolint:gochecknoglobals // Static lookup table
var sweetCores = []string{"cake", "dessert", "ice", "chocolate", "cookie", "brownie"}

// descriptorWords are description keywords worth carrying into the query.
//
//nolint:gochecknoglobals // Static lookup table
var descriptorWords = []string{"grilled", "fried", "baked", "roasted", "fresh", "creamy", "spicy"}

func isSavory(core string) bool {
	for _, sweet := range sweetCores {
		if strings.Contains(core, sweet) {
			return false
		}
	}
	return true
}

// buildQuery assembles a CSE image query from the dish core, its modifiers,
// and the description. With context enabled the query steers toward plated
// restaurant photos; with negatives enabled it excludes known junk imagery.
func buildQuery(core string, modifiers []string, description string, addContext, useNegatives bool) string {
	parts := []string{core}

	if len(modifiers) > 2 {
		modifiers = modifiers[:2]
	}
	parts = append(parts, modifiers...)

	if description != "" {
		descLower := strings.ToLower(description)
		for _, word := range descriptorWords {
			if strings.Contains(descLower, word) && !contains(parts, word) {
				parts = append(parts, word)
				break
			}
		}
	}

	if addContext {
		parts = append(parts, `"restaurant"`, `"plated"`, `"food photography"`, "dish")
	}

	if useNegatives {
		if isSavory(core) {
			parts = append(parts, "-dessert", "-cake", "-sweet")
		}
		parts = append(parts,
			"-menu", "-text", "-face", "-person", "-chef",
			"-logo", "-cartoon", "-illustration",
		)
	}

	return strings.Join(parts, " ")
}

// siteRestriction builds an OR clause limiting results to the top food
// domains.
func siteRestriction(n int) string {
	if n > len(foodDomains) {
		n = len(foodDomains)
	}
	sites := make([]string, 0, n)
	for _, d := range foodDomains[:n] {
		sites = append(sites, "site:"+d)
	}
	return "(" + strings.Join(sites, " OR ") + ")"
}

// isRelevant checks a search result's surrounding text against the dish
// keywords and the junk-term lists.
func isRelevant(item cseItem, coreKeywords []string, savory bool) bool {
	allText := strings.ToLower(strings.Join([]string{
		item.Title, item.Snippet, item.Link, item.Image.ContextLink,
	}, " "))

	matched := false
	for _, keyword := range coreKeywords {
		if strings.Contains(allText, keyword) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	if savory {
		for _, term := range sweetTerms {
			if strings.Contains(allText, term) {
				return false
			}
		}
	}
	for _, term := range objectTerms {
		if strings.Contains(allText, term) {
			return false
		}
	}
	for _, term := range unwantedTerms {
		if strings.Contains(allText, term) {
			return false
		}
	}
	return true
}

// canonicalURL strips the scheme and query string so the same image served
// under http/https or with tracking parameters dedupes to one entry.
func canonicalURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return strings.ToLower(parsed.Host) + strings.ToLower(parsed.Path)
}

// coreKeywords builds the keyword set used for relevance checks.
func coreKeywords(core string, modifiers []string) []string {
	keywords := []string{core}
	if strings.Contains(core, "burger") {
		keywords = append(keywords, "burger", "hamburger", "cheeseburger")
	}
	if len(modifiers) > 2 {
		modifiers = modifiers[:2]
	}
	keywords = append(keywords, modifiers...)
	return keywords
}

func contains(parts []string, word string) bool {
	for _, p := range parts {
		if p == word {
			return true
		}
	}
	return false
}
