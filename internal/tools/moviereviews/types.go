package moviereviews

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// SearchResponse is the top-level Article Search response body
type SearchResponse struct {
	Status    string        `json:"status,omitempty"`
	Copyright string        `json:"copyright,omitempty"`
	Response  *ResponseBody `json:"response"`
}

// ResponseBody holds the result documents of one page
type ResponseBody struct {
	Docs []Document `json:"docs"`
	Meta *Meta      `json:"meta,omitempty"`
}

// Meta carries paging information returned alongside the documents
type Meta struct {
	Hits   int `json:"hits"`
	Offset int `json:"offset"`
	Time   int `json:"time"`
}

// Documents returns the result documents, or nil when the body carried none
func (r *SearchResponse) Documents() []Document {
	if r == nil || r.Response == nil {
		return nil
	}
	return r.Response.Docs
}

// Document is one raw search result. Every field is optional; accessors
// return the documented default when a field is absent.
type Document struct {
	Headline    *Headline `json:"headline,omitempty"`
	Byline      *Byline   `json:"byline,omitempty"`
	PubDate     *string   `json:"pub_date,omitempty"`
	WebURL      *string   `json:"web_url,omitempty"`
	Abstract    *string   `json:"abstract,omitempty"`
	Snippet     *string   `json:"snippet,omitempty"`
	CriticsPick Flag      `json:"critics_pick"`
}

// Headline is the nested headline object of a document
type Headline struct {
	Main   *string `json:"main,omitempty"`
	Kicker *string `json:"kicker,omitempty"`
}

// Byline is the nested byline object of a document
type Byline struct {
	Original *string `json:"original,omitempty"`
}

// Title returns headline.main or "" when absent
func (d Document) Title() string {
	if d.Headline == nil {
		return ""
	}
	return deref(d.Headline.Main)
}

// Kicker returns headline.kicker or "" when absent
func (d Document) Kicker() string {
	if d.Headline == nil {
		return ""
	}
	return deref(d.Headline.Kicker)
}

// BylineText returns byline.original or "" when absent
func (d Document) BylineText() string {
	if d.Byline == nil {
		return ""
	}
	return deref(d.Byline.Original)
}

// PublishedDate returns the first 10 characters of pub_date
func (d Document) PublishedDate() string {
	pub := deref(d.PubDate)
	if len(pub) > 10 {
		return pub[:10]
	}
	return pub
}

// URL returns web_url or "" when absent
func (d Document) URL() string {
	return deref(d.WebURL)
}

// Summary prefers the abstract and falls back to the snippet
func (d Document) Summary() string {
	if abstract := deref(d.Abstract); abstract != "" {
		return abstract
	}
	return deref(d.Snippet)
}

// IsFlaggedCriticsPick reports whether critics_pick is exactly 1
func (d Document) IsFlaggedCriticsPick() bool {
	return d.CriticsPick == 1
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Flag is an integer flag that tolerates the different encodings the API
// has been seen to use (number, numeric string, bool, null). Anything it
// cannot interpret decodes as 0 rather than failing the whole response.
type Flag int

// UnmarshalJSON implements json.Unmarshaler
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = 0

	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		return nil
	case bytes.Equal(data, []byte("true")):
		*f = 1
		return nil
	case bytes.Equal(data, []byte("false")):
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	switch v := raw.(type) {
	case float64:
		if v == float64(int(v)) {
			*f = Flag(int(v))
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*f = Flag(n)
		}
	}
	return nil
}

// nytFault is the error body the API gateway returns for auth and quota failures
type nytFault struct {
	Fault struct {
		FaultString string `json:"faultstring"`
	} `json:"fault"`
	Message string `json:"message"`
}

func (f nytFault) text() string {
	if f.Fault.FaultString != "" {
		return f.Fault.FaultString
	}
	return f.Message
}
