package webtool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxSearchResults bounds how many hits are formatted for the caller.
const maxSearchResults = 10

// searchResponse is the SearXNG-style response shape the search proxy
// returns for format=json queries.
type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	PublishedDate string `json:"publishedDate"`
}

// Search queries the configured search proxy through the shell and
// returns a formatted result list.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	return c.search(ctx, query, false)
}

// SearchNews is Search restricted to the proxy's news category.
func (c *Client) SearchNews(ctx context.Context, query string) (string, error) {
	return c.search(ctx, query, true)
}

func (c *Client) search(ctx context.Context, query string, news bool) (string, error) {
	if c.ProxyURL == "" {
		return "", ErrNoProxy
	}
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("empty search query")
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	if news {
		q.Set("categories", "news")
	}
	endpoint := fmt.Sprintf("%s/search?%s", c.ProxyURL, q.Encode())

	cmd := fmt.Sprintf("curl -sL --max-time 30 %s", Quote(endpoint))
	body, err := c.runCurl(ctx, cmd)
	if err != nil {
		return "", err
	}

	var resp searchResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return "", fmt.Errorf("parsing search response: %w", err)
	}
	if len(resp.Results) == 0 {
		return fmt.Sprintf("No results for %q.", query), nil
	}

	return formatResults(query, resp.Results), nil
}

// formatResults renders hits as a numbered list. Result snippets often
// carry inline markup; it is stripped before display.
func formatResults(query string, results []searchResult) string {
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	strip := bluemonday.StrictPolicy()

	var b strings.Builder
	fmt.Fprintf(&b, "Results for %q:\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, strings.TrimSpace(r.Title), r.URL)
		if r.PublishedDate != "" {
			fmt.Fprintf(&b, "   %s\n", r.PublishedDate)
		}
		if snippet := strings.TrimSpace(strip.Sanitize(r.Content)); snippet != "" {
			fmt.Fprintf(&b, "   %s\n", snippet)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
