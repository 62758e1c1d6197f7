package moviereviews

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func docWith(title, kicker string, pick Flag) Document {
	doc := Document{CriticsPick: pick}
	if title != "" || kicker != "" {
		doc.Headline = &Headline{}
		if title != "" {
			doc.Headline.Main = strPtr(title)
		}
		if kicker != "" {
			doc.Headline.Kicker = strPtr(kicker)
		}
	}
	return doc
}

func TestIsCriticsPick(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want bool
	}{
		{name: "flagged", doc: docWith("A", "", 1), want: true},
		{name: "kicker fallback", doc: docWith("B", "Critic's Pick", 0), want: true},
		{name: "kicker any case", doc: docWith("C", "CRITICS PICKS", 0), want: true},
		{name: "unrelated kicker", doc: docWith("D", "Movies", 0), want: false},
		{name: "critic without pick", doc: docWith("E", "Critic's Notebook", 0), want: false},
		{name: "flag of 2 is not a pick", doc: docWith("F", "", 2), want: false},
		{name: "empty document", doc: Document{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCriticsPick(tt.doc))
		})
	}
}

func TestFilterCriticsPicks_PreservesOrder(t *testing.T) {
	docs := []Document{
		docWith("first", "", 1),
		docWith("skip", "Movies", 0),
		docWith("second", "Critic's Pick", 0),
		docWith("skip too", "", 0),
		docWith("third", "", 1),
	}

	picks := FilterCriticsPicks(docs)
	titles := make([]string, 0, len(picks))
	for _, doc := range picks {
		titles = append(titles, doc.Title())
	}
	assert.Equal(t, []string{"first", "second", "third"}, titles)
}

func TestFilterCriticsPicks_Empty(t *testing.T) {
	assert.Empty(t, FilterCriticsPicks(nil))
	assert.Empty(t, FilterCriticsPicks([]Document{docWith("x", "Movies", 0)}))
}
