package inmem

import (
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/lk2023060901/model-serializer-go/pkg/model"
)

// Manager 是对象列表，按插入顺序迭代。
type Manager []*Object

var _ model.Manager = Manager(nil)

// Objects 构造一个 Manager。
func Objects(objs ...*Object) Manager {
	return Manager(objs)
}

func (m Manager) All(ctx context.Context) iter.Seq2[model.Model, error] {
	return func(yield func(model.Model, error) bool) {
		for _, o := range m {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(o, nil) {
				return
			}
		}
	}
}

// Store 按模型保存对象，反向关系通过扫描 Store 计算。
type Store struct {
	mu      sync.RWMutex
	objects map[string][]*Object
}

func NewStore() *Store {
	return &Store{objects: make(map[string][]*Object)}
}

// Add 将对象按插入顺序加入 Store。
func (s *Store) Add(objs ...*Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range objs {
		label := o.schema.Label()
		s.objects[label] = append(s.objects[label], o)
	}
}

// Objects 返回某个模型的全部对象。
func (s *Store) Objects(label string) Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.objects[label])
}

func (s *Store) filter(label string, match func(*Object) bool) Manager {
	res := Manager{}
	for _, o := range s.Objects(label) {
		if match(o) {
			res = append(res, o)
		}
	}
	return res
}

type reverseRelation struct {
	accessor string
	kind     model.FieldKind
	resolve  func(obj *Object) any
}

func (r *reverseRelation) AccessorName() string { return r.accessor }

func (r *reverseRelation) Kind() model.FieldKind { return r.kind }

func (r *reverseRelation) Resolve(_ context.Context, obj model.Model) (any, error) {
	o, ok := obj.(*Object)
	if !ok {
		return nil, nil
	}
	return r.resolve(o), nil
}

// ReverseFK 声明一对多反向关系：from 模型中外键 fk 指向当前对象的所有对象。
func ReverseFK(accessor string, store *Store, from *Schema, fk string) model.Relation {
	return &reverseRelation{
		accessor: accessor,
		kind:     model.KindReverseForeignKey,
		resolve: func(obj *Object) any {
			return store.filter(from.Label(), func(o *Object) bool {
				v, _ := o.Get(fk)
				return v == obj
			})
		},
	}
}

// ReverseOneToOne 声明一对一反向关系，结果为单个对象，不存在时为 nil。
func ReverseOneToOne(accessor string, store *Store, from *Schema, fk string) model.Relation {
	return &reverseRelation{
		accessor: accessor,
		kind:     model.KindReverseForeignKey,
		resolve: func(obj *Object) any {
			matched := store.filter(from.Label(), func(o *Object) bool {
				v, _ := o.Get(fk)
				return v == obj
			})
			if len(matched) == 0 {
				return nil
			}
			return matched[0]
		},
	}
}

// ReverseM2M 声明多对多反向关系：from 模型中多对多字段 m2m 包含当前对象的所有对象。
func ReverseM2M(accessor string, store *Store, from *Schema, m2m string) model.Relation {
	return &reverseRelation{
		accessor: accessor,
		kind:     model.KindReverseManyToMany,
		resolve: func(obj *Object) any {
			return store.filter(from.Label(), func(o *Object) bool {
				v, _ := o.Get(m2m)
				members, _ := v.([]*Object)
				return slices.Contains(members, obj)
			})
		},
	}
}
