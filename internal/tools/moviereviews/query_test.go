package moviereviews

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFilterQuery(t *testing.T) {
	assert.Equal(t, "critics_pick:1 AND x:y", BuildFilterQuery("critics_pick:1", "x:y"))
	assert.Equal(t, "critics_pick:1", BuildFilterQuery(CriticsPickTerm))
	assert.Equal(t, "", BuildFilterQuery())
	assert.Equal(t, `section_name:("Movies") AND type_of_material:"Review"`,
		BuildFilterQuery(`section_name:("Movies")`, `type_of_material:"Review"`), "terms are not escaped")
}

func TestNormaliseSort(t *testing.T) {
	assert.Equal(t, SortNewest, NormaliseSort(""))
	assert.Equal(t, SortNewest, NormaliseSort("best"))
	assert.Equal(t, SortOldest, NormaliseSort("Oldest"))
	assert.Equal(t, SortRelevance, NormaliseSort(" relevance "))
}

func TestSearchRequest_Values(t *testing.T) {
	req := SearchRequest{
		Query:       "Barbie",
		FilterQuery: "critics_pick:1",
		Sort:        SortRelevance,
		Page:        2,
		BeginDate:   "20230101",
		EndDate:     "20231231",
		Limit:       3,
	}

	values := req.Values()
	assert.Equal(t, "Barbie", values.Get("q"))
	assert.Equal(t, "critics_pick:1", values.Get("fq"))
	assert.Equal(t, "relevance", values.Get("sort"))
	assert.Equal(t, "2", values.Get("page"))
	assert.Equal(t, "20230101", values.Get("begin_date"))
	assert.Equal(t, "20231231", values.Get("end_date"))
	assert.False(t, values.Has("api-key"), "credential is attached by the client")
}

func TestSearchRequest_ValuesOmitsEmptyAndClamps(t *testing.T) {
	values := SearchRequest{Page: -4, Sort: "sideways"}.Values()

	assert.False(t, values.Has("q"))
	assert.False(t, values.Has("fq"))
	assert.False(t, values.Has("begin_date"))
	assert.False(t, values.Has("end_date"))
	assert.Equal(t, "0", values.Get("page"))
	assert.Equal(t, SortNewest, values.Get("sort"))
}
