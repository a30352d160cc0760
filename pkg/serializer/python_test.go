package serializer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lk2023060901/model-serializer-go/internal/json"
	"github.com/lk2023060901/model-serializer-go/pkg/log"
	"github.com/lk2023060901/model-serializer-go/pkg/model"
	"github.com/lk2023060901/model-serializer-go/pkg/model/inmem"
	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

// library 是测试用的作者 / 书 / 标签 / 简介模型。
type library struct {
	store   *inmem.Store
	author  *inmem.Schema
	book    *inmem.Schema
	tag     *inmem.Schema
	profile *inmem.Schema

	alice, bob      *inmem.Object
	x, y, z, orphan *inmem.Object
	goTag, dbTag    *inmem.Object
	aliceProfile    *inmem.Object
}

func newLibrary() *library {
	l := &library{store: inmem.NewStore()}
	l.author = inmem.NewSchema("app.author")
	l.book = inmem.NewSchema("app.book")
	l.tag = inmem.NewSchema("app.tag").WithPK("slug")
	l.profile = inmem.NewSchema("app.profile")

	l.author.
		AddLocal(inmem.Attr("name"), inmem.Attr("password", inmem.Hidden())).
		AddRelation(
			inmem.ReverseFK("book_set", l.store, l.book, "author"),
			inmem.ReverseOneToOne("profile", l.store, l.profile, "author"),
		)
	l.book.
		AddLocal(inmem.Attr("title"), inmem.FK("author")).
		AddM2M(inmem.M2M("tags"), inmem.M2MThrough("readers"))
	l.tag.
		AddLocal(inmem.Attr("label")).
		AddRelation(inmem.ReverseM2M("book_set", l.store, l.book, "tags"))
	l.profile.
		AddLocal(inmem.Attr("bio"), inmem.FK("author"))

	l.alice = inmem.NewObject(l.author, 1).Set("name", "Alice").Set("password", "secret")
	l.bob = inmem.NewObject(l.author, 2).Set("name", "Bob")
	l.goTag = inmem.NewObject(l.tag, "go").Set("label", "Go")
	l.dbTag = inmem.NewObject(l.tag, "db").Set("label", "Databases")
	l.x = inmem.NewObject(l.book, 10).Set("title", "X").Set("author", l.alice).
		Set("tags", []*inmem.Object{l.goTag, l.dbTag}).
		Set("readers", []*inmem.Object{l.bob})
	l.y = inmem.NewObject(l.book, 11).Set("title", "Y").Set("author", l.alice).
		Set("tags", []*inmem.Object{l.goTag})
	l.z = inmem.NewObject(l.book, 12).Set("title", "Z").Set("author", l.bob)
	l.orphan = inmem.NewObject(l.book, 13).Set("title", "Orphan")
	l.aliceProfile = inmem.NewObject(l.profile, 50).Set("bio", "writer").Set("author", l.alice)

	l.store.Add(l.alice, l.bob, l.goTag, l.dbTag, l.x, l.y, l.z, l.orphan, l.aliceProfile)
	return l
}

type SerializerSuite struct {
	suite.Suite
	ctx    context.Context
	lib    *library
	logger *log.MLogger
}

func (s *SerializerSuite) SetupTest() {
	s.ctx = context.Background()
	s.lib = newLibrary()
	logger, _, err := log.InitTestLogger(s.T(), &log.Config{Level: "debug", Format: "console"})
	s.Require().NoError(err)
	s.logger = &log.MLogger{Logger: logger}
}

// newSerializer 返回一个把日志写到当前测试输出的 Serializer。
func (s *SerializerSuite) newSerializer() *Serializer {
	ser := New()
	ser.SetLogger(s.logger)
	return ser
}

func (s *SerializerSuite) serialize(opts *Options, objs ...*inmem.Object) []*Record {
	records, err := s.newSerializer().Serialize(s.ctx, model.Slice(objs), opts)
	s.Require().NoError(err)
	s.Require().Len(records, len(objs))
	return records
}

func (s *SerializerSuite) field(rec *Record, name string) any {
	v, ok := rec.Fields.Get(name)
	s.Require().True(ok, "field %s missing", name)
	return v
}

func (s *SerializerSuite) TestEmptyOptions() {
	rec := s.serialize(nil, s.lib.alice)[0]
	s.Equal("app.author", rec.Model)
	s.Equal("1", rec.PK)
	s.Equal([]string{"name"}, rec.Fields.Keys())
	s.Equal("Alice", s.field(rec, "name"))
	s.Nil(rec.Extras)
}

func (s *SerializerSuite) TestEmptyInput() {
	records, err := Serialize[*inmem.Object](s.ctx, nil, nil)
	s.NoError(err)
	s.NotNil(records)
	s.Empty(records)
}

func (s *SerializerSuite) TestFieldsAndExcludes() {
	rec := s.serialize(&Options{Fields: []string{"title", "tags", "unknown"}}, s.lib.x)[0]
	s.Equal([]string{"title", "tags"}, rec.Fields.Keys())

	rec = s.serialize(&Options{Excludes: []string{"author", "tags"}}, s.lib.x)[0]
	s.Equal([]string{"title"}, rec.Fields.Keys())
}

func (s *SerializerSuite) TestExcludesDominateFields() {
	opts := &Options{Fields: []string{"title", "author"}, Excludes: []string{"author"}}
	rec := s.serialize(opts, s.lib.x)[0]
	s.Equal([]string{"title"}, rec.Fields.Keys())
	s.False(rec.Fields.Has("author"))
}

func (s *SerializerSuite) TestFieldOrderFollowsDeclaration() {
	rec := s.serialize(nil, s.lib.x)[0]
	s.Equal([]string{"title", "author", "tags"}, rec.Fields.Keys())
}

func (s *SerializerSuite) TestForeignKeyReference() {
	rec := s.serialize(nil, s.lib.x)[0]
	s.Equal(1, s.field(rec, "author"))

	uuidAuthor := inmem.NewObject(s.lib.author, "a-7").Set("name", "Carol")
	book := inmem.NewObject(s.lib.book, 20).Set("title", "W").Set("author", uuidAuthor)
	rec = s.serialize(nil, book)[0]
	s.Equal("a-7", s.field(rec, "author"))

	type compositeKey struct{ Region, ID string }
	key := compositeKey{"eu", "7"}
	keyed := inmem.NewObject(s.lib.author, key).Set("name", "Dan")
	book = inmem.NewObject(s.lib.book, 21).Set("title", "V").Set("author", keyed)
	rec = s.serialize(nil, book)[0]
	s.Equal(key, s.field(rec, "author"))
}

func (s *SerializerSuite) TestForeignKeyAbsent() {
	rec := s.serialize(nil, s.lib.orphan)[0]
	v := s.field(rec, "author")
	s.Nil(v)

	rec = s.serialize(&Options{Relations: ExpandRelations("author")}, s.lib.orphan)[0]
	s.Nil(s.field(rec, "author"))
}

func (s *SerializerSuite) TestForeignKeyExpanded() {
	nested := &Options{Fields: []string{"name"}}
	opts := &Options{Relations: Relations{"author": nested}}
	rec := s.serialize(opts, s.lib.x)[0]

	want, err := Serialize(s.ctx, []*inmem.Object{s.lib.alice}, nested)
	s.Require().NoError(err)
	s.Equal(want[0], s.field(rec, "author"))

	// 未给出嵌套选项时使用空选项
	rec = s.serialize(&Options{Relations: ExpandRelations("author")}, s.lib.x)[0]
	author, ok := s.field(rec, "author").(*Record)
	s.Require().True(ok)
	s.Equal("app.author", author.Model)
	s.Equal("1", author.PK)
	s.Equal([]string{"name"}, author.Fields.Keys())
}

func (s *SerializerSuite) TestForeignKeyToNonPrimaryField() {
	code := inmem.NewSchema("app.code").AddLocal(inmem.Attr("value"))
	coupon := inmem.NewSchema("app.coupon").AddLocal(inmem.FKTo("code", "value"))
	c := inmem.NewObject(code, 1).Set("value", 42)
	obj := inmem.NewObject(coupon, 9).Set("code", c)

	rec := s.serialize(nil, obj)[0]
	s.Equal(42, s.field(rec, "code"))

	broken := inmem.NewSchema("app.broken").AddLocal(inmem.FKTo("code", "missing"))
	_, err := Serialize(s.ctx, []*inmem.Object{inmem.NewObject(broken, 1).Set("code", c)}, nil)
	s.ErrorIs(err, merr.ErrFieldNotFound)
}

func (s *SerializerSuite) TestManyToManyReferences() {
	rec := s.serialize(nil, s.lib.x)[0]
	s.Equal([]any{"go", "db"}, s.field(rec, "tags"))
	s.False(rec.Fields.Has("readers"))

	rec = s.serialize(nil, s.lib.z)[0]
	s.Equal([]any{}, s.field(rec, "tags"))
}

func (s *SerializerSuite) TestManyToManyExpanded() {
	opts := &Options{Relations: Relations{"tags": {Fields: []string{"label"}}}}
	rec := s.serialize(opts, s.lib.x)[0]
	tags, ok := s.field(rec, "tags").([]*Record)
	s.Require().True(ok)
	s.Require().Len(tags, 2)
	s.Equal("go", tags[0].PK)
	s.Equal("db", tags[1].PK)
	s.Equal("Databases", s.field(tags[1], "label"))

	rec = s.serialize(opts, s.lib.z)[0]
	s.Equal([]*Record{}, s.field(rec, "tags"))
}

func (s *SerializerSuite) TestNaturalKeys() {
	s.lib.alice.WithNaturalKey("alice", "smith")
	s.lib.goTag.WithNaturalKey("tag:go")

	rec := s.serialize(&Options{UseNaturalKeys: true}, s.lib.x)[0]
	s.Equal([]any{"alice", "smith"}, s.field(rec, "author"))
	// 不支持自然键的对象退回主键
	s.Equal([]any{[]any{"tag:go"}, "db"}, s.field(rec, "tags"))

	rec = s.serialize(nil, s.lib.x)[0]
	s.Equal(1, s.field(rec, "author"))
}

func (s *SerializerSuite) TestReverseRelationsOmittedUnlessExpanded() {
	rec := s.serialize(nil, s.lib.alice)[0]
	s.False(rec.Fields.Has("book_set"))
	s.False(rec.Fields.Has("profile"))

	rec = s.serialize(nil, s.lib.goTag)[0]
	s.False(rec.Fields.Has("book_set"))
}

func (s *SerializerSuite) TestReverseForeignKeyExpanded() {
	rec := s.serialize(&Options{Relations: ExpandRelations("book_set")}, s.lib.alice)[0]
	books, ok := s.field(rec, "book_set").([]*Record)
	s.Require().True(ok)
	s.Require().Len(books, 2)
	s.Equal("10", books[0].PK)
	s.Equal("11", books[1].PK)
	s.Equal(1, s.field(books[0], "author"))

	rec = s.serialize(&Options{Relations: ExpandRelations("book_set")}, s.lib.bob)[0]
	books = s.field(rec, "book_set").([]*Record)
	s.Len(books, 1)
}

// fixedRelation 总是返回同一个值。
type fixedRelation struct {
	name  string
	kind  model.FieldKind
	value any
}

func (r fixedRelation) AccessorName() string { return r.name }

func (r fixedRelation) Kind() model.FieldKind { return r.kind }

func (r fixedRelation) Resolve(context.Context, model.Model) (any, error) { return r.value, nil }

func (s *SerializerSuite) TestNilManagerExpandsToEmptyList() {
	schema := inmem.NewSchema("app.shelf").AddRelation(
		fixedRelation{name: "books", kind: model.KindReverseForeignKey, value: inmem.Manager(nil)},
		fixedRelation{name: "owner", kind: model.KindReverseForeignKey, value: (*inmem.Object)(nil)},
		fixedRelation{name: "tags", kind: model.KindReverseManyToMany, value: inmem.Manager(nil)},
	)
	opts := &Options{Relations: ExpandRelations("books", "owner", "tags")}
	rec := s.serialize(opts, inmem.NewObject(schema, 1))[0]
	s.Equal([]*Record{}, s.field(rec, "books"))
	s.Nil(s.field(rec, "owner"))
	s.Equal([]*Record{}, s.field(rec, "tags"))
}

func (s *SerializerSuite) TestEmptyReverseRelationsExpandToEmptyList() {
	carol := inmem.NewObject(s.lib.author, 3).Set("name", "Carol")
	rustTag := inmem.NewObject(s.lib.tag, "rust").Set("label", "Rust")
	s.lib.store.Add(carol, rustTag)

	rec := s.serialize(&Options{Relations: ExpandRelations("book_set")}, carol)[0]
	s.Equal([]*Record{}, s.field(rec, "book_set"))

	rec = s.serialize(&Options{Relations: ExpandRelations("book_set")}, rustTag)[0]
	s.Equal([]*Record{}, s.field(rec, "book_set"))

	data, err := json.Marshal(s.serialize(&Options{Relations: ExpandRelations("book_set")}, carol))
	s.Require().NoError(err)
	s.Contains(string(data), `"book_set":[]`)
}

func (s *SerializerSuite) TestReverseOneToOne() {
	opts := &Options{Relations: Relations{"profile": {Excludes: []string{"author"}}}}
	rec := s.serialize(opts, s.lib.alice)[0]
	profile, ok := s.field(rec, "profile").(*Record)
	s.Require().True(ok)
	s.Equal("app.profile", profile.Model)
	s.Equal([]string{"bio"}, profile.Fields.Keys())

	rec = s.serialize(opts, s.lib.bob)[0]
	s.Nil(s.field(rec, "profile"))
}

func (s *SerializerSuite) TestReverseManyToManyExpanded() {
	opts := &Options{Relations: Relations{"book_set": {Fields: []string{"title"}}}}
	rec := s.serialize(opts, s.lib.goTag)[0]
	books := s.field(rec, "book_set").([]*Record)
	s.Require().Len(books, 2)
	s.Equal("X", s.field(books[0], "title"))
	s.Equal("Y", s.field(books[1], "title"))

	rec = s.serialize(opts, s.lib.dbTag)[0]
	s.Len(s.field(rec, "book_set").([]*Record), 1)
}

func (s *SerializerSuite) TestReverseRelationsIgnoreAllowList() {
	opts := &Options{Fields: []string{"name"}, Relations: ExpandRelations("book_set")}
	rec := s.serialize(opts, s.lib.alice)[0]
	s.Equal([]string{"name", "book_set"}, rec.Fields.Keys())

	opts.Excludes = []string{"book_set"}
	rec = s.serialize(opts, s.lib.alice)[0]
	s.Equal([]string{"name"}, rec.Fields.Keys())
}

func (s *SerializerSuite) TestExtras() {
	calls := 0
	s.lib.alice.
		WithExtra("greeting", func() any { calls++; return "hi Alice" }).
		WithExtra("age", 33).
		WithExtra("joined", func() (any, error) { return time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), nil })

	rec := s.serialize(&Options{Extras: []string{"greeting", "missing", "age", "joined"}}, s.lib.alice)[0]
	s.Require().NotNil(rec.Extras)
	s.Equal([]string{"greeting", "age", "joined"}, rec.Extras.Keys())
	v, _ := rec.Extras.Get("greeting")
	s.Equal("hi Alice", v)
	v, _ = rec.Extras.Get("age")
	s.Equal(33, v)
	v, _ = rec.Extras.Get("joined")
	s.IsType(time.Time{}, v)
	s.Equal(1, calls)

	rec = s.serialize(&Options{Extras: []string{"missing"}}, s.lib.alice)[0]
	s.Nil(rec.Extras)
}

func (s *SerializerSuite) TestExtraError() {
	boom := errors.New("boom")
	s.lib.alice.WithExtra("broken", func() (any, error) { return nil, boom })
	records, err := Serialize(s.ctx, []*inmem.Object{s.lib.alice}, &Options{Extras: []string{"broken"}})
	s.ErrorIs(err, boom)
	s.ErrorIs(err, merr.ErrFieldValueFailed)
	s.Nil(records)
}

func (s *SerializerSuite) TestIdempotence() {
	opts := &Options{Relations: Relations{"book_set": {Relations: ExpandRelations("tags")}}}
	first := s.serialize(opts, s.lib.alice)
	_ = s.serialize(opts, s.lib.bob, s.lib.alice)
	second := s.serialize(opts, s.lib.alice)
	s.Equal(first, second)

	both := s.serialize(opts, s.lib.bob, s.lib.alice)
	s.Equal(first[0], both[1])
}

func (s *SerializerSuite) TestEndToEnd() {
	records := s.serialize(&Options{Relations: ExpandRelations("book_set")}, s.lib.alice)
	data, err := json.Marshal(records)
	s.Require().NoError(err)
	s.JSONEq(`[{"model":"app.author","pk":"1","fields":{"name":"Alice","book_set":[
		{"model":"app.book","pk":"10","fields":{"title":"X","author":1,"tags":["go","db"]}},
		{"model":"app.book","pk":"11","fields":{"title":"Y","author":1,"tags":["go"]}}
	]}}]`, string(data))
}

func (s *SerializerSuite) TestJSONKeepsFieldOrder() {
	s.lib.alice.WithExtra("z", "last").WithExtra("a", "first")
	records := s.serialize(&Options{Extras: []string{"z", "a"}}, s.lib.alice)
	data, err := json.Marshal(records[0])
	s.Require().NoError(err)
	s.Equal(`{"model":"app.author","pk":"1","fields":{"name":"Alice"},"extras":{"z":"last","a":"first"}}`, string(data))
	s.Less(strings.Index(string(data), `"z"`), strings.Index(string(data), `"a"`))
}

func (s *SerializerSuite) TestDataAccessErrorPropagates() {
	boom := errors.New("storage down")
	schema := inmem.NewSchema("app.flaky").AddLocal(
		inmem.Attr("name"),
		inmem.Computed("score", func(*inmem.Object) (any, error) { return nil, boom }),
	)
	records, err := Serialize(s.ctx, []*inmem.Object{inmem.NewObject(schema, 1).Set("name", "n")}, nil)
	s.ErrorIs(err, boom)
	s.ErrorIs(err, merr.ErrFieldValueFailed)
	s.Nil(records)
}

func (s *SerializerSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := Serialize(ctx, []*inmem.Object{s.lib.alice}, &Options{Relations: ExpandRelations("book_set")})
	s.ErrorIs(err, context.Canceled)
	s.True(merr.IsCanceledOrTimeout(err))
}

func (s *SerializerSuite) TestValueResetAfterFailure() {
	ser := s.newSerializer()
	records, err := ser.Serialize(s.ctx, model.Slice([]*inmem.Object{s.lib.alice}), nil)
	s.Require().NoError(err)
	s.Len(records, 1)
	s.Len(ser.Value(), 1)

	broken := inmem.NewSchema("app.broken").AddLocal(
		inmem.Computed("v", func(*inmem.Object) (any, error) { return nil, errors.New("x") }))
	_, err = ser.Serialize(s.ctx, model.Slice([]*inmem.Object{s.lib.bob, inmem.NewObject(broken, 1)}), nil)
	s.Error(err)
	s.Nil(ser.Value())
}

func (s *SerializerSuite) TestNestedSerializersInheritLogger() {
	core, logs := observer.New(zapcore.DebugLevel)
	ser := New()
	ser.SetLogger(&log.MLogger{Logger: zap.New(core)})

	opts := &Options{Relations: Relations{"book_set": {Relations: ExpandRelations("tags")}}}
	_, err := ser.Serialize(s.ctx, model.Slice([]*inmem.Object{s.lib.alice}), opts)
	s.Require().NoError(err)

	expansions := logs.FilterMessage("expand relation")
	// book_set 一次，两本书的 tags 各一次
	s.Equal(3, expansions.Len())
	s.Equal(2, expansions.FilterField(log.FieldRelation("tags")).Len())
}

func TestSerializer(t *testing.T) {
	suite.Run(t, new(SerializerSuite))
}
