package serializer

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/model-serializer-go/pkg/model"
	"github.com/lk2023060901/model-serializer-go/pkg/model/inmem"
	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

var personSchema = inmem.NewSchema("app.person")

// person 通过反射暴露 extras。
type person struct {
	First    string
	Nickname string
	Badge    func() string
	secret   string
}

func (p *person) Meta() model.Meta { return personSchema }

func (p *person) PK() any { return 7 }

func (p *person) FullName() string { return p.First + " Doe" }

func (p *person) Initials() (string, error) {
	if p.First == "" {
		return "", errors.New("no name")
	}
	return p.First[:1], nil
}

func (p *person) Greet(name string) string { return "hi " + name }

func TestResolveExtraReflection(t *testing.T) {
	p := &person{First: "John", Nickname: "JJ", Badge: func() string { return "gold" }, secret: "s"}

	cases := []struct {
		name string
		want any
		ok   bool
	}{
		{"FullName", "John Doe", true},
		{"full_name", "John Doe", true},
		{"nickname", "JJ", true},
		{"Initials", "J", true},
		{"badge", "gold", true},
		{"secret", nil, false},
		{"missing", nil, false},
	}
	for _, c := range cases {
		v, ok, err := resolveExtra(p, c.name)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.ok, ok, c.name)
		assert.Equal(t, c.want, v, c.name)
	}

	_, _, err := resolveExtra(p, "greet")
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	_, _, err = resolveExtra(&person{}, "initials")
	assert.EqualError(t, err, "no name")
}

func TestSerializeReflectedExtras(t *testing.T) {
	p := &person{First: "John"}
	records, err := Serialize(context.Background(), []*person{p}, &Options{Extras: []string{"full_name", "ghost"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"full_name"}, records[0].Extras.Keys())
	v, _ := records[0].Extras.Get("full_name")
	assert.Equal(t, "John Doe", v)
}
