package connector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/brandpulse-ai/brandpulse/internal/types"
)

const defaultUserAgent = "BrandPulse/1.0"

// WebConnector fetches a page and extracts its readable text. The
// endpoint is a URL template with a %s placeholder for the
// query-escaped search term, e.g. "https://example.com/search?q=%s".
type WebConnector struct {
	name     string
	endpoint string
	client   *http.Client
}

// NewWebConnector wires an HTTP client; a nil client gets a 20s timeout
// default.
func NewWebConnector(name, endpoint string, client *http.Client) *WebConnector {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &WebConnector{name: name, endpoint: endpoint, client: client}
}

// Name identifies the connector inside the registry.
func (w *WebConnector) Name() string {
	return w.name
}

// Fetch downloads the page for query and returns up to limit extracted
// text blocks joined by newlines.
func (w *WebConnector) Fetch(ctx context.Context, query string, limit int, opts FetchOptions) (string, error) {
	pageURL := w.endpoint
	if strings.Contains(pageURL, "%s") {
		pageURL = fmt.Sprintf(pageURL, url.QueryEscape(query))
	}

	doc, err := w.fetchDocument(ctx, pageURL, opts)
	if err != nil {
		return "", err
	}

	blocks := extractTextBlocks(doc, limit)
	if len(blocks) == 0 {
		return "", types.NewError(types.CONNECTOR_FETCH_FAILED,
			fmt.Sprintf("connector %s: no readable text at %s", w.name, pageURL))
	}
	return strings.Join(blocks, "\n"), nil
}

func (w *WebConnector) fetchDocument(ctx context.Context, pageURL string, opts FetchOptions) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, types.WrapError(types.CONNECTOR_FETCH_FAILED, "build request", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	if opts.Language != "" {
		req.Header.Set("Accept-Language", opts.Language)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		perr := types.WrapError(types.CONNECTOR_FETCH_FAILED,
			fmt.Sprintf("connector %s: request failed", w.name), err)
		perr.Retryable = true
		return nil, perr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		perr := types.NewError(types.CONNECTOR_FETCH_FAILED,
			fmt.Sprintf("connector %s: %s returned %s", w.name, pageURL, resp.Status))
		// Server-side failures are worth retrying, client errors are not.
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			perr.Retryable = true
		}
		return nil, perr
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, types.WrapError(types.CONNECTOR_FETCH_FAILED, "parse document", err)
	}
	return doc, nil
}

// extractTextBlocks pulls the text-bearing elements out of a page in
// document order, skipping boilerplate containers.
func extractTextBlocks(doc *goquery.Document, limit int) []string {
	doc.Find("script, style, nav, footer, header, noscript").Remove()

	var blocks []string
	doc.Find("h1, h2, h3, p, li, blockquote").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return true
		}
		blocks = append(blocks, text)
		return limit <= 0 || len(blocks) < limit
	})
	return blocks
}
