package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"google.golang.org/genai"

	"github.com/vango-go/live-gateway/pkg/gateway/tools/safety"
)

// CustomWebSearch proxies a search query to the configured search endpoint.
func CustomWebSearch(deps Deps) Tool {
	return Tool{
		Name:        "custom_web_search",
		Description: "Searches the web for current information about a topic.",
		Parameters: objectSchema(map[string]*genai.Schema{
			"query": {Type: genai.TypeString, Description: "Search query string"},
		}, []string{"query"}),
		Run: func(ctx context.Context, args map[string]any, st State) map[string]any {
			query := stringArg(args, "query")
			if query == "" {
				return errorPayload("query is required")
			}
			if deps.SearchURL == "" {
				return errorPayload("search service endpoint not configured")
			}
			return fetchJSON(ctx, deps, deps.SearchURL, url.Values{"q": {query}})
		},
	}
}

// WebContentSummarizer asks the summarizer endpoint for a digest of a page.
func WebContentSummarizer(deps Deps) Tool {
	return Tool{
		Name:        "web_content_summarizer",
		Description: "Fetches a web page and returns a short summary of its content.",
		Parameters: objectSchema(map[string]*genai.Schema{
			"url": {Type: genai.TypeString, Description: "Absolute URL of the page to summarize"},
		}, []string{"url"}),
		Run: func(ctx context.Context, args map[string]any, st State) map[string]any {
			target := stringArg(args, "url")
			if target == "" {
				return errorPayload("url is required")
			}
			if deps.SummarizerURL == "" {
				return errorPayload("summarizer service endpoint not configured")
			}
			return fetchJSON(ctx, deps, deps.SummarizerURL, url.Values{"url": {target}})
		},
	}
}

// GetWeather queries the weather endpoint for a city.
func GetWeather(deps Deps) Tool {
	return Tool{
		Name:        "get_weather",
		Description: "Gets the current weather for a given city.",
		Parameters: objectSchema(map[string]*genai.Schema{
			"city": {Type: genai.TypeString, Description: "The city or location to get the weather for"},
		}, []string{"city"}),
		Run: func(ctx context.Context, args map[string]any, st State) map[string]any {
			city := stringArg(args, "city")
			if city == "" {
				return errorPayload("city is required")
			}
			if deps.WeatherURL == "" {
				return errorPayload("weather service endpoint not configured")
			}
			return fetchJSON(ctx, deps, deps.WeatherURL, url.Values{"city": {city}})
		},
	}
}

func fetchJSON(ctx context.Context, deps Deps, endpoint string, params url.Values) map[string]any {
	full := endpoint
	if len(params) > 0 {
		full = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return errorPayload("build request: %v", err)
	}
	resp, err := deps.httpClient().Do(req)
	if err != nil {
		return errorPayload("failed to call service: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorPayload("service returned status %d", resp.StatusCode)
	}
	var payload map[string]any
	if err := safety.DecodeJSONLimited(resp, safety.DefaultBodyLimit, &payload); err != nil {
		return errorPayload("invalid JSON from service: %v", err)
	}
	return payload
}

func postJSON(ctx context.Context, deps Deps, endpoint string, body any) map[string]any {
	encoded, err := json.Marshal(body)
	if err != nil {
		return errorPayload("encode request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return errorPayload("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := deps.httpClient().Do(req)
	if err != nil {
		return errorPayload("failed to call service: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorPayload("service returned status %d", resp.StatusCode)
	}
	var payload map[string]any
	if err := safety.DecodeJSONLimited(resp, safety.DefaultBodyLimit, &payload); err != nil {
		return map[string]any{"status": fmt.Sprintf("accepted (%d)", resp.StatusCode)}
	}
	return payload
}
