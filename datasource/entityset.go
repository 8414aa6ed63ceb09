/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package datasource

import (
	"context"
	"reflect"

	"github.com/tomoncle/uow/query"
	"github.com/tomoncle/uow/types"
	"github.com/uptrace/bun"
)

// EntitySet is the per-model view of a DataContext. Reads go through the
// context's current runner; mutators stage a change and save immediately.
type EntitySet[T any] struct {
	dc DataContext
}

// Set returns the EntitySet of model T on dc.
func Set[T any](dc DataContext) *EntitySet[T] {
	return &EntitySet[T]{dc: dc}
}

// Context returns the DataContext the set belongs to.
func (s *EntitySet[T]) Context() DataContext { return s.dc }

// Query returns an unfiltered builder.
func (s *EntitySet[T]) Query() *query.Builder[T] {
	return query.New[T](s.dc)
}

func (s *EntitySet[T]) Where(cond string, args ...interface{}) *query.Builder[T] {
	return s.Query().Where(cond, args...)
}

func (s *EntitySet[T]) First(ctx context.Context) (*T, error) {
	return s.Query().First(ctx)
}

func (s *EntitySet[T]) FirstOrDefault(ctx context.Context) (*T, error) {
	return s.Query().FirstOrDefault(ctx)
}

func (s *EntitySet[T]) Single(ctx context.Context) (*T, error) {
	return s.Query().Single(ctx)
}

func (s *EntitySet[T]) Count(ctx context.Context) (int, error) {
	return s.Query().Count(ctx)
}

func (s *EntitySet[T]) Any(ctx context.Context) (bool, error) {
	return s.Query().Any(ctx)
}

func (s *EntitySet[T]) ToList(ctx context.Context) ([]*T, error) {
	return s.Query().ToList(ctx)
}

// Find looks a record up by its primary key values, given in the order the
// model declares its pk columns. It returns nil, nil when nothing matches.
func (s *EntitySet[T]) Find(ctx context.Context, keys ...any) (*T, error) {
	table := s.dc.DB().Dialect().Tables().Get(reflect.TypeFor[T]())
	if len(table.PKs) == 0 {
		return nil, types.InvalidOperation("model %s has no primary key", table.TypeName)
	}
	if len(keys) != len(table.PKs) {
		return nil, types.InvalidOperation("model %s has %d key columns, got %d values",
			table.TypeName, len(table.PKs), len(keys))
	}
	q := s.Query()
	for i, pk := range table.PKs {
		q = q.Where("?TableAlias.? = ?", bun.Ident(pk.Name), keys[i])
	}
	return q.FirstOrDefault(ctx)
}

func (s *EntitySet[T]) Add(ctx context.Context, entity *T) error {
	return s.save(ctx, OpInsert, entity)
}

func (s *EntitySet[T]) Update(ctx context.Context, entity *T) error {
	return s.save(ctx, OpUpdate, entity)
}

func (s *EntitySet[T]) Remove(ctx context.Context, entity *T) error {
	return s.save(ctx, OpDelete, entity)
}

func (s *EntitySet[T]) AddRange(ctx context.Context, entities ...*T) error {
	return s.save(ctx, OpInsert, entities...)
}

func (s *EntitySet[T]) RemoveRange(ctx context.Context, entities ...*T) error {
	return s.save(ctx, OpDelete, entities...)
}

func (s *EntitySet[T]) save(ctx context.Context, op Op, entities ...*T) error {
	changes := make([]Change, 0, len(entities))
	for _, entity := range entities {
		if entity == nil {
			return types.InvalidOperation("cannot %s a nil %s", op, reflect.TypeFor[T]().Name())
		}
		changes = append(changes, Change{Op: op, Model: entity})
	}
	_, err := s.dc.ApplyChanges(ctx, changes...)
	return err
}
