package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name      string
		pattern   string
		candidate string
		quality   Quality
		indices   []int
	}{
		{"empty pattern", "", "SELECT", Prefix, nil},
		{"prefix", "sel", "SELECT", Prefix, []int{0, 1, 2}},
		{"substring", "lect", "SELECT", Substring, []int{2, 3, 4, 5}},
		{"underscore stripped", "userid", "user_id", Substring, nil},
		{"acronym", "ij", "INNER JOIN", Acronym, []int{0, 6}},
		{"camel acronym", "ci", "customerId", Acronym, []int{0, 8}},
		{"subsequence", "slt", "SELECT", Fuzzy, []int{0, 2, 5}},
		{"no match", "xyz", "SELECT", None, nil},
		{"pattern longer", "selects", "SELECT", None, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.pattern, tt.candidate)
			assert.Equal(t, tt.quality, got.Quality)
			if tt.indices != nil {
				assert.Equal(t, tt.indices, got.Indices)
			}
		})
	}
}

func TestMatch_Scores(t *testing.T) {
	t.Run("shorter prefix wins", func(t *testing.T) {
		assert.Greater(t, Match("us", "users").Score, Match("us", "user_sessions").Score)
	})
	t.Run("earlier substring wins", func(t *testing.T) {
		assert.Greater(t, Match("id", "xid").Score, Match("id", "order_id").Score)
	})
	t.Run("consecutive runs win", func(t *testing.T) {
		a := Match("ord", "xoxrd")
		b := Match("ord", "xoxrxd")
		assert.Equal(t, Fuzzy, a.Quality)
		assert.Greater(t, a.Score, b.Score)
	})
}

func TestQuality_Ordering(t *testing.T) {
	assert.Less(t, None, Fuzzy)
	assert.Less(t, Fuzzy, Acronym)
	assert.Less(t, Acronym, Substring)
	assert.Less(t, Substring, Prefix)
	assert.Equal(t, "prefix", Prefix.String())
	assert.Equal(t, "none", Quality(42).String())
}

func TestRank(t *testing.T) {
	items := []string{"order_items", "customers", "orders", "xorder", "products"}
	got := Rank("ord", items, func(s string) string { return s })
	assert.Equal(t, []string{"orders", "order_items", "xorder"}, got)
}

func TestRank_Stable(t *testing.T) {
	items := []string{"abc", "abd", "abe"}
	got := Rank("ab", items, func(s string) string { return s })
	assert.Equal(t, items, got)
}

func TestBetter(t *testing.T) {
	prefix := Match("or", "orders")
	sub := Match("or", "color")
	assert.True(t, Better(prefix, sub))
	assert.False(t, Better(sub, prefix))
	assert.False(t, Better(prefix, prefix))
}
