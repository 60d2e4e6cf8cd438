// Package httpfetch implements the HTTP collaborator (spec §6) backing the
// fetch_url_content operation: fetch(url) -> body bytes, rendered as
// markdown-ish text when the response is HTML.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"deriveengine/internal/config"
	"deriveengine/internal/logging"

	"golang.org/x/net/html"
)

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]{2,}`)
)

// Fetcher retrieves URL content for the fetch_url_content operation,
// satisfying ops.Fetcher.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	userAgent    string
}

// New creates a Fetcher from HTTP configuration.
func New(cfg config.HTTPConfig) *Fetcher {
	timeout := 60 * time.Second
	if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
		timeout = d
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 2 << 20
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (compatible; deriveengine/1.0)"
	}

	return &Fetcher{
		client:       &http.Client{Timeout: timeout},
		timeout:      timeout,
		maxBodyBytes: maxBody,
		userAgent:    userAgent,
	}
}

// Fetch retrieves url's body. HTML responses are converted to a flattened
// text rendering so the content is directly usable as an llm operation input;
// other content types are returned as-is.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	timer := logging.StartTimer(logging.CategoryHTTP, "httpfetch.Fetch")
	defer timer.Stop()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	logging.HTTPDebug("Fetch: GET %s", url)

	resp, err := f.client.Do(req)
	if err != nil {
		logging.HTTPError("Fetch: request failed for %s: %v", url, err)
		return nil, fmt.Errorf("httpfetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpfetch: HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("httpfetch: failed to read response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/plain") || strings.Contains(contentType, "text/markdown") {
		logging.HTTP("Fetch: completed %s (%d bytes, plain)", url, len(body))
		return body, nil
	}
	if !strings.Contains(contentType, "html") {
		logging.HTTP("Fetch: completed %s (%d bytes, non-html)", url, len(body))
		return body, nil
	}

	text, err := htmlToText(string(body))
	if err != nil {
		return nil, fmt.Errorf("httpfetch: failed to render html: %w", err)
	}

	logging.HTTP("Fetch: completed %s (%d bytes html -> %d chars text)", url, len(body), len(text))
	return []byte(text), nil
}

// htmlToText flattens an HTML document into a simplified markdown-ish
// rendering so it reads cleanly as plain text input to downstream operations.
func htmlToText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	extractText(doc, &sb, 0)
	return cleanText(sb.String()), nil
}

func extractText(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 50 {
		return
	}

	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "header":
			return
		case "title":
			sb.WriteString("# ")
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				extractText(c, sb, depth+1)
			}
			sb.WriteString("\n\n")
			return
		case "h1":
			sb.WriteString("\n\n# ")
		case "h2":
			sb.WriteString("\n\n## ")
		case "h3":
			sb.WriteString("\n\n### ")
		case "p", "div":
			sb.WriteString("\n\n")
		case "br":
			sb.WriteString("\n")
		case "li":
			sb.WriteString("\n- ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb, depth+1)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3":
			sb.WriteString("\n\n")
		}
	}
}

func cleanText(s string) string {
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	s = multiSpacePattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
