package tools

import (
	"context"
	"encoding/json"
	_ "embed"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/genai"
)

//go:embed catalog.json
var rawCatalog []byte

// CatalogItem is one sellable plan/product in the embedded demo catalog.
type CatalogItem struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	MonthlyPrice string   `json:"monthly_price"`
	Description  string   `json:"description"`
	Highlights   []string `json:"highlights,omitempty"`
}

var (
	catalogOnce  sync.Once
	catalogItems []CatalogItem
	catalogErr   error
)

func loadCatalog() ([]CatalogItem, error) {
	catalogOnce.Do(func() {
		catalogErr = json.Unmarshal(rawCatalog, &catalogItems)
	})
	return catalogItems, catalogErr
}

var priceRe = regexp.MustCompile(`[\d.]+`)

// parsePrice extracts a numeric amount from strings like "$79/mth".
func parsePrice(s string) (float64, bool) {
	m := priceRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SearchLiveCatalog searches the embedded catalog by keyword, with optional
// category and maximum monthly price filters.
func SearchLiveCatalog() Tool {
	return Tool{
		Name:        "search_live_catalog",
		Description: "Searches the live product catalog for plans matching a query, optionally filtered by category and maximum monthly price.",
		Parameters: objectSchema(map[string]*genai.Schema{
			"query":             {Type: genai.TypeString, Description: "Keywords to match against plan names and descriptions"},
			"category":          {Type: genai.TypeString, Description: "Optional category filter, e.g. internet or mobile"},
			"max_monthly_price": {Type: genai.TypeNumber, Description: "Optional maximum monthly price in dollars"},
		}, []string{"query"}),
		Run: func(ctx context.Context, args map[string]any, st State) map[string]any {
			items, err := loadCatalog()
			if err != nil {
				return errorPayload("catalog unavailable: %v", err)
			}

			query := strings.ToLower(stringArg(args, "query"))
			category := strings.ToLower(stringArg(args, "category"))
			maxPrice, capPrice := floatArg(args, "max_monthly_price")

			matches := make([]CatalogItem, 0, len(items))
			for _, item := range items {
				if category != "" && strings.ToLower(item.Category) != category {
					continue
				}
				if capPrice {
					price, ok := parsePrice(item.MonthlyPrice)
					if ok && price > maxPrice {
						continue
					}
				}
				if query != "" && !itemMatches(item, query) {
					continue
				}
				matches = append(matches, item)
			}

			return map[string]any{
				"query":   query,
				"count":   len(matches),
				"results": matches,
			}
		},
	}
}

func itemMatches(item CatalogItem, loweredQuery string) bool {
	for _, word := range strings.Fields(loweredQuery) {
		haystack := strings.ToLower(item.Name + " " + item.Category + " " + item.Description + " " + strings.Join(item.Highlights, " "))
		if !strings.Contains(haystack, word) {
			return false
		}
	}
	return true
}

func floatArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		return parsePrice(v)
	default:
		return 0, false
	}
}
