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

	"github.com/tomoncle/uow/datasource"
	"github.com/tomoncle/uow/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// SimpleRepository defines the identifier-based operations over one model.
type SimpleRepository[T any] interface {
	// FindByID returns nil, nil when no record has the identifier.
	FindByID(ctx context.Context, id any) (*T, error)

	HasByID(ctx context.Context, id any) (bool, error)

	FindAll(ctx context.Context) ([]*T, error)

	FindAllByFilter(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Count(ctx context.Context) (int, error)

	CountByFilter(ctx context.Context, filter *types.QueryFilter) (int, error)

	AddNew(ctx context.Context, entity ...*T) error

	Update(ctx context.Context, entity *T) error

	// UpdateByID writes the columns in which replacement differs from the
	// stored record. Nothing is written when they are equal.
	UpdateByID(ctx context.Context, id any, replacement *T) error

	DeleteByID(ctx context.Context, id any) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines the identifier operations, pagination and upserts and
// exposes Bun query builders bound to the current unit of work.
type Repository[T any] interface {
	SimpleRepository[T]
	PageQueryRepository[T]

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	// Upsert inserts entities, updating fields of the rows that collide on
	// duplicateKeys ("id" when empty).
	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error

	Set() *datasource.EntitySet[T]
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}

// NotFoundError reports an identifier that matched no record.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("uow: %s with id %v not found", e.Entity, e.ID)
}

// Is makes errors.Is(err, datasource.ErrEntityNotFound) hold.
func (e *NotFoundError) Is(target error) bool {
	return target == types.ErrEntityNotFound
}
