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

package repository

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/tomoncle/uow/datasource"
	"github.com/tomoncle/uow/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any, PT types.Entity[T]] struct {
	dc  datasource.DataContext
	set *datasource.EntitySet[T]
}

// NewRepository returns a repository of model T working on dc. Writes are
// saved immediately, inside the open transaction of dc if there is one.
func NewRepository[T any, PT types.Entity[T]](dc datasource.DataContext) Repository[T] {
	return &baseRepositoryImpl[T, PT]{dc: dc, set: datasource.Set[T](dc)}
}

// NewSimpleRepository is NewRepository narrowed to SimpleRepository.
func NewSimpleRepository[T any, PT types.Entity[T]](dc datasource.DataContext) SimpleRepository[T] {
	return NewRepository[T, PT](dc)
}

func (r *baseRepositoryImpl[T, PT]) Set() *datasource.EntitySet[T] { return r.set }

func (r *baseRepositoryImpl[T, PT]) Dialect() schema.Dialect { return r.dc.DB().Dialect() }

func (r *baseRepositoryImpl[T, PT]) NewSelect() *bun.SelectQuery { return r.dc.DB().NewSelect() }

func (r *baseRepositoryImpl[T, PT]) NewInsert() *bun.InsertQuery { return r.dc.DB().NewInsert() }

func (r *baseRepositoryImpl[T, PT]) NewUpdate() *bun.UpdateQuery { return r.dc.DB().NewUpdate() }

func (r *baseRepositoryImpl[T, PT]) NewDelete() *bun.DeleteQuery { return r.dc.DB().NewDelete() }

func (r *baseRepositoryImpl[T, PT]) idColumn() string {
	var zero T
	return PT(&zero).IDColumn()
}

func (r *baseRepositoryImpl[T, PT]) entityName() string {
	return reflect.TypeFor[T]().Name()
}

func (r *baseRepositoryImpl[T, PT]) byID(id any) *types.QueryFilter {
	return types.NewQueryFilter("?TableAlias.? = ?", bun.Ident(r.idColumn()), id)
}

func (r *baseRepositoryImpl[T, PT]) FindByID(ctx context.Context, id any) (*T, error) {
	return r.set.Query().Filter(r.byID(id)).FirstOrDefault(ctx)
}

func (r *baseRepositoryImpl[T, PT]) HasByID(ctx context.Context, id any) (bool, error) {
	return r.set.Query().Filter(r.byID(id)).Any(ctx)
}

func (r *baseRepositoryImpl[T, PT]) FindAll(ctx context.Context) ([]*T, error) {
	return r.set.ToList(ctx)
}

func (r *baseRepositoryImpl[T, PT]) FindAllByFilter(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return r.set.Query().Filter(filter).ToList(ctx)
}

func (r *baseRepositoryImpl[T, PT]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	return r.set.Where(query, args...).ToList(ctx)
}

func (r *baseRepositoryImpl[T, PT]) Count(ctx context.Context) (int, error) {
	return r.set.Count(ctx)
}

func (r *baseRepositoryImpl[T, PT]) CountByFilter(ctx context.Context, filter *types.QueryFilter) (int, error) {
	return r.set.Query().Filter(filter).Count(ctx)
}

func (r *baseRepositoryImpl[T, PT]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	q := r.set.Query().Filter(pageRequest.GetFilter())
	for i, order := range pageRequest.GetOrders() {
		switch {
		case i == 0 && order.Descending:
			q = q.OrderByDescending(order.Column)
		case i == 0:
			q = q.OrderBy(order.Column)
		case order.Descending:
			q = q.ThenByDescending(order.Column)
		default:
			q = q.ThenBy(order.Column)
		}
	}
	return q.Page(ctx, pageRequest.GetPage(), pageRequest.GetPageSize())
}

func (r *baseRepositoryImpl[T, PT]) AddNew(ctx context.Context, entity ...*T) error {
	return r.set.AddRange(ctx, entity...)
}

func (r *baseRepositoryImpl[T, PT]) Update(ctx context.Context, entity *T) error {
	return r.set.Update(ctx, entity)
}

func (r *baseRepositoryImpl[T, PT]) UpdateByID(ctx context.Context, id any, replacement *T) error {
	if replacement == nil {
		return types.InvalidOperation("cannot update %s %v with a nil replacement", r.entityName(), id)
	}
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return &NotFoundError{Entity: r.entityName(), ID: id}
	}

	idColumn := r.idColumn()
	columns := slices.DeleteFunc(PT(existing).Diff(replacement), func(col string) bool {
		return col == idColumn
	})
	if len(columns) == 0 {
		return nil
	}
	_, err = r.dc.ApplyChanges(ctx, datasource.Change{
		Op:      datasource.OpUpdate,
		Model:   replacement,
		Columns: columns,
		Where:   types.NewQueryFilter("? = ?", bun.Ident(idColumn), id),
	})
	return err
}

func (r *baseRepositoryImpl[T, PT]) DeleteByID(ctx context.Context, id any) error {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return &NotFoundError{Entity: r.entityName(), ID: id}
	}
	return r.set.Remove(ctx, existing)
}

func (r *baseRepositoryImpl[T, PT]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return types.InvalidOperation("upsert of %s needs at least one field", r.entityName())
	}
	if slices.Contains(entity, nil) {
		return types.InvalidOperation("cannot upsert a nil %s", r.entityName())
	}
	if len(entity) == 0 {
		return nil
	}

	entities := slices.Clone(entity)
	features := r.Dialect().Features()
	switch {
	case features.Has(feature.InsertOnConflict):
		return r.upsertOnConflict(ctx, fields, duplicateKeys, entities)
	case features.Has(feature.InsertOnDuplicateKey):
		return r.upsertOnDuplicateKey(ctx, fields, entities)
	default:
		return r.upsertFallback(ctx, fields, entities)
	}
}

func (r *baseRepositoryImpl[T, PT]) upsertOnDuplicateKey(ctx context.Context, fields []string, entities []*T) error {
	q := r.NewInsert().Model(&entities).On("DUPLICATE KEY UPDATE")
	for _, field := range fields {
		q = q.Set("? = VALUES(?)", bun.Ident(field), bun.Ident(field))
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T, PT]) upsertOnConflict(ctx context.Context, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{r.idColumn()}
	}
	q := r.NewInsert().
		Model(&entities).
		On("CONFLICT (" + strings.Join(duplicateKeys, ",") + ") DO UPDATE")
	for _, field := range fields {
		q = q.Set("? = EXCLUDED.?", bun.Ident(field), bun.Ident(field))
	}
	_, err := q.Exec(ctx)
	return err
}

// upsertFallback updates the entities that already exist by identifier and
// inserts the others, all in one save.
func (r *baseRepositoryImpl[T, PT]) upsertFallback(ctx context.Context, fields []string, entities []*T) error {
	changes := make([]datasource.Change, 0, len(entities))
	for _, entity := range entities {
		exists, err := r.HasByID(ctx, PT(entity).GetID())
		if err != nil {
			return fmt.Errorf("upsert lookup failed: %w", err)
		}
		if exists {
			changes = append(changes, datasource.Change{Op: datasource.OpUpdate, Model: entity, Columns: fields})
		} else {
			changes = append(changes, datasource.Change{Op: datasource.OpInsert, Model: entity})
		}
	}
	_, err := r.dc.ApplyChanges(ctx, changes...)
	return err
}
