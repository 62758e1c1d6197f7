package moviereviews

import "strings"

// IsCriticsPick reports whether doc should be treated as a Critic's Pick.
// The API leaves critics_pick unset on some genuine picks, so a kicker
// mentioning both "critic" and "pick" also qualifies.
func IsCriticsPick(doc Document) bool {
	if doc.IsFlaggedCriticsPick() {
		return true
	}
	kicker := strings.ToLower(doc.Kicker())
	return strings.Contains(kicker, "critic") && strings.Contains(kicker, "pick")
}

// FilterCriticsPicks returns the documents that satisfy IsCriticsPick, in
// their original order.
func FilterCriticsPicks(docs []Document) []Document {
	picks := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if IsCriticsPick(doc) {
			picks = append(picks, doc)
		}
	}
	return picks
}
