package content

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// ExtractText extracts the main readable text from an HTML page.
// Used by the discover flow to pull episode notes from feed item pages.
func ExtractText(htmlContent string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	return strings.TrimSpace(article.TextContent), nil
}

// ExtractTitle extracts a page title from HTML content with fallback mechanisms.
func ExtractTitle(htmlContent string) (string, error) {
	// Try readability first
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		title := strings.TrimSpace(article.Title)
		if title != "" {
			return title, nil
		}
	}

	// Fallback: parse the HTML directly with goquery
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Try <title> tag
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}

	// Try <h1> tag (often the main heading)
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title, nil
	}

	// Try meta property="og:title"
	if title, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title), nil
	}

	return "", fmt.Errorf("title not found in HTML")
}

// StripTags removes inline markup from a caption text fragment.
// SubRip allows tags like <i>, <b> and <font> inside caption lines; search
// and display want the bare text. Fragments without markup pass through
// unchanged.
func StripTags(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return fragment
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	return strings.TrimSpace(doc.Text())
}
