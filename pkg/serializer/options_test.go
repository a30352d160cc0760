package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

func TestRelations(t *testing.T) {
	r := ExpandRelations("b", "a")
	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("c"))
	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.Equal(t, &Options{}, r.Nested("a"))
	assert.Equal(t, &Options{}, r.Nested("missing"))

	nested := &Options{Fields: []string{"x"}}
	r["c"] = nested
	assert.Same(t, nested, r.Nested("c"))

	var empty Relations
	assert.False(t, empty.Has("a"))
	assert.Empty(t, empty.Names())
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, &Options{}, opts)

	opts, err = ParseOptions(map[string]any{
		"fields":           []any{"name", "title"},
		"excludes":         "password",
		"extras":           []string{"full_name"},
		"use_natural_keys": "true",
		"relations":        []any{"book_set"},
		"unknown":          1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "title"}, opts.Fields)
	assert.Equal(t, []string{"password"}, opts.Excludes)
	assert.Equal(t, []string{"full_name"}, opts.Extras)
	assert.True(t, opts.UseNaturalKeys)
	assert.Equal(t, ExpandRelations("book_set"), opts.Relations)
}

func TestParseNestedRelations(t *testing.T) {
	opts, err := ParseOptions(map[string]any{
		"relations": map[string]any{
			"author": nil,
			"book_set": map[string]any{
				"fields":    []any{"title"},
				"relations": []any{"tags"},
			},
		},
	})
	require.NoError(t, err)
	require.True(t, opts.Relations.Has("author"))
	assert.Nil(t, opts.Relations["author"])

	books := opts.Relations.Nested("book_set")
	assert.Equal(t, []string{"title"}, books.Fields)
	assert.True(t, books.Relations.Has("tags"))
}

func TestParseOptionsInvalid(t *testing.T) {
	cases := []map[string]any{
		{"fields": 12},
		{"use_natural_keys": "maybe"},
		{"relations": 3},
		{"relations": map[string]any{"a": 5}},
		{"relations": map[string]any{"a": map[string]any{"fields": 1}}},
	}
	for _, raw := range cases {
		_, err := ParseOptions(raw)
		assert.ErrorIs(t, err, merr.ErrParameterInvalid, "%v", raw)
		assert.Equal(t, merr.InputError, merr.GetErrorType(err))
	}
}
