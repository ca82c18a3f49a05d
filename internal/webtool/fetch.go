package webtool

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// Fetch retrieves rawURL through the session's shell and returns the
// response body. HTML responses are reduced to readable text.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	cmd := fmt.Sprintf("curl -sL --max-time 60 %s", Quote(u.String()))
	body, err := c.runCurl(ctx, cmd)
	if err != nil {
		return "", err
	}

	if looksLikeHTML(body) {
		return htmlToText(body), nil
	}
	return body, nil
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(s)
	if len(head) > 1024 {
		head = head[:1024]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html") || strings.Contains(head, "<body")
}

// htmlToText reduces an HTML document to its title and visible text.
// Script, style, and similar non-content nodes are removed before text
// extraction; on parse failure the markup is stripped wholesale.
func htmlToText(htm string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htm))
	if err != nil {
		return collapseBlank(bluemonday.StrictPolicy().Sanitize(htm))
	}

	doc.Find("script, style, noscript, svg, iframe").Remove()

	var b strings.Builder
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		fmt.Fprintf(&b, "%s\n\n", title)
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		b.WriteString(doc.Text())
	} else {
		b.WriteString(body.Text())
	}
	return collapseBlank(b.String())
}

// collapseBlank trims trailing space per line and squeezes runs of
// blank lines down to one.
func collapseBlank(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	out := blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}
