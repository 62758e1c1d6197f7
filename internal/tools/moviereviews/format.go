package moviereviews

import (
	"strings"
	"unicode"
)

const (
	untitled        = "Untitled"
	unknownByline   = "Unknown byline"
	criticsPickMark = " (Critic's Pick)"

	// ReviewSeparator joins formatted reviews in a tool response
	ReviewSeparator = "\n---\n"
)

// FormatReview renders doc as a fixed five line text block
func FormatReview(doc Document) string {
	title := doc.Title()
	if title == "" {
		title = untitled
	}
	if hasCriticsPickMarker(doc) {
		title += criticsPickMark
	}

	byline := doc.BylineText()
	if byline == "" {
		byline = unknownByline
	}

	lines := []string{
		"Title: " + title,
		byline,
		"Published: " + doc.PublishedDate(),
		"URL: " + doc.URL(),
		"Summary: " + doc.Summary(),
	}

	return strings.TrimRightFunc(strings.Join(lines, "\n"), unicode.IsSpace)
}

// hasCriticsPickMarker is looser than IsCriticsPick: the kicker only has to
// mention "critic".
func hasCriticsPickMarker(doc Document) bool {
	if doc.IsFlaggedCriticsPick() {
		return true
	}
	return strings.Contains(strings.ToLower(doc.Kicker()), "critic")
}

// FormatReviews formats at most limit documents and joins them with
// ReviewSeparator.
func FormatReviews(docs []Document, limit int) string {
	if limit < 1 {
		limit = 1
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}

	blocks := make([]string, 0, len(docs))
	for _, doc := range docs {
		blocks = append(blocks, FormatReview(doc))
	}
	return strings.Join(blocks, ReviewSeparator)
}
