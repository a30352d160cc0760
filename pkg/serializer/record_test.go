package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/model-serializer-go/internal/json"
	"github.com/lk2023060901/model-serializer-go/pkg/model/inmem"
)

func TestFields(t *testing.T) {
	f := NewFields()
	f.Set("b", 1)
	f.Set("a", "x")
	f.Set("b", 2)
	assert.Equal(t, []string{"b", "a"}, f.Keys())
	assert.Equal(t, 2, f.Len())
	v, ok := f.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	var keys []string
	for k := range f.All() {
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"b", "a"}, keys)

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2,"a":"x"}`, string(data))

	var zero Fields
	zero.Set("k", nil)
	assert.True(t, zero.Has("k"))

	var nilFields *Fields
	assert.Equal(t, 0, nilFields.Len())
	assert.Nil(t, nilFields.Keys())
	assert.False(t, nilFields.Has("k"))
}

func TestRecordBuilder(t *testing.T) {
	schema := inmem.NewSchema("app.thing")
	b := NewRecordBuilder(inmem.NewObject(schema, 5))
	b.SetField("name", "n")
	rec := b.Build()
	assert.Equal(t, "app.thing", rec.Model)
	assert.Equal(t, "5", rec.PK)
	assert.Nil(t, rec.Extras)

	b.SetExtra("e", 1)
	rec = b.Build()
	require.NotNil(t, rec.Extras)
	assert.Equal(t, []string{"e"}, rec.Extras.Keys())

	rec = NewRecordBuilder(inmem.NewObject(schema, nil)).Build()
	assert.Equal(t, "", rec.PK)
}
