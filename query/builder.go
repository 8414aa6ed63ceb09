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

package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomoncle/uow/types"
	"github.com/uptrace/bun"
)

// ErrSecondarySortWithoutPrimary is recorded by ThenBy and ThenByDescending
// when no OrderBy preceded them.
var ErrSecondarySortWithoutPrimary = fmt.Errorf("%w: secondary sort requires a primary sort", types.ErrInvalidOperation)

// Runner supplies the statement runner queries execute on: a *bun.DB, or the
// bun.Tx of a unit of work that is in progress.
type Runner interface {
	DB() bun.IDB
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func() bun.IDB

func (f RunnerFunc) DB() bun.IDB { return f() }

// FromDB returns a Runner for a fixed bun.IDB.
func FromDB(db bun.IDB) Runner {
	return RunnerFunc(func() bun.IDB { return db })
}

type filter struct {
	cond string
	args []interface{}
}

// Builder accumulates filter, sort, include and projection steps for model T
// and compiles them into one bun select only when a terminal method runs.
// Builders are not safe for concurrent use.
type Builder[T any] struct {
	runner    Runner
	filters   []filter
	primary   *types.SortOrder
	secondary []types.SortOrder
	relations []string
	columns   []string
	distinct  bool
	offset    int
	limit     int
	limited   bool
	err       error
}

// New returns an empty builder running on r.
func New[T any](r Runner) *Builder[T] {
	return &Builder[T]{runner: r}
}

// Err returns the first usage error recorded on the builder.
func (b *Builder[T]) Err() error { return b.err }

// Where adds a condition in bun placeholder syntax; conditions are ANDed.
func (b *Builder[T]) Where(cond string, args ...interface{}) *Builder[T] {
	if strings.TrimSpace(cond) == "" {
		b.fail(types.InvalidOperation("empty where condition"))
		return b
	}
	b.filters = append(b.filters, filter{cond: cond, args: args})
	return b
}

// Filter adds f when it is not empty.
func (b *Builder[T]) Filter(f *types.QueryFilter) *Builder[T] {
	if f.IsEmpty() {
		return b
	}
	return b.Where(f.Schema, f.Args...)
}

// OrderBy sets the primary ascending sort, discarding earlier sorts.
func (b *Builder[T]) OrderBy(column string) *Builder[T] {
	return b.setPrimary(column, false)
}

// OrderByDescending sets the primary descending sort, discarding earlier sorts.
func (b *Builder[T]) OrderByDescending(column string) *Builder[T] {
	return b.setPrimary(column, true)
}

// ThenBy adds an ascending tie-breaker. It requires a primary sort.
func (b *Builder[T]) ThenBy(column string) *Builder[T] {
	return b.addSecondary(column, false)
}

// ThenByDescending adds a descending tie-breaker. It requires a primary sort.
func (b *Builder[T]) ThenByDescending(column string) *Builder[T] {
	return b.addSecondary(column, true)
}

// Include loads the named bun relations together with the rows.
func (b *Builder[T]) Include(relations ...string) *Builder[T] {
	b.relations = append(b.relations, relations...)
	return b
}

// Select restricts the loaded columns; the rest stay at their zero values.
func (b *Builder[T]) Select(columns ...string) *Builder[T] {
	b.columns = append(b.columns, columns...)
	return b
}

// Distinct removes duplicate rows.
func (b *Builder[T]) Distinct() *Builder[T] {
	b.distinct = true
	return b
}

// Skip bypasses the first n rows.
func (b *Builder[T]) Skip(n int) *Builder[T] {
	if n < 0 {
		b.fail(types.InvalidOperation("negative skip %d", n))
		return b
	}
	b.offset = n
	return b
}

// Take limits the result to n rows; Take(0) yields no rows.
func (b *Builder[T]) Take(n int) *Builder[T] {
	if n < 0 {
		b.fail(types.InvalidOperation("negative take %d", n))
		return b
	}
	b.limit, b.limited = n, true
	return b
}

// Orders returns primary then secondary sorts in application order.
func (b *Builder[T]) Orders() []types.SortOrder {
	if b.primary == nil {
		return nil
	}
	return append([]types.SortOrder{*b.primary}, b.secondary...)
}

func (b *Builder[T]) setPrimary(column string, desc bool) *Builder[T] {
	if column == "" {
		b.fail(types.InvalidOperation("empty sort column"))
		return b
	}
	b.primary = &types.SortOrder{Column: column, Descending: desc}
	b.secondary = nil
	return b
}

func (b *Builder[T]) addSecondary(column string, desc bool) *Builder[T] {
	if b.primary == nil {
		b.fail(ErrSecondarySortWithoutPrimary)
		return b
	}
	if column == "" {
		b.fail(types.InvalidOperation("empty sort column"))
		return b
	}
	b.secondary = append(b.secondary, types.SortOrder{Column: column, Descending: desc})
	return b
}

func (b *Builder[T]) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// compile turns the accumulated steps into a select on model, in the order
// filters, primary sort, secondary sorts, distinct, offset/limit.
func (b *Builder[T]) compile(model interface{}, paged bool) (*bun.SelectQuery, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.runner == nil {
		return nil, types.InvalidOperation("query has no runner")
	}
	q := b.runner.DB().NewSelect().Model(model)
	for _, f := range b.filters {
		q = q.Where(f.cond, f.args...)
	}
	for _, rel := range b.relations {
		q = q.Relation(rel)
	}
	if len(b.columns) > 0 {
		q = q.Column(b.columns...)
	}
	for _, o := range b.Orders() {
		q = q.OrderExpr("? "+o.Direction(), bun.Ident(o.Column))
	}
	if b.distinct {
		q = q.Distinct()
	}
	if paged {
		if b.offset > 0 {
			q = q.Offset(b.offset)
		}
		if b.limited {
			q = q.Limit(b.limit)
		}
	}
	return q, nil
}

// ToList materializes every matching row.
func (b *Builder[T]) ToList(ctx context.Context) ([]*T, error) {
	entities := make([]*T, 0)
	q, err := b.compile(&entities, true)
	if err != nil {
		return nil, err
	}
	if b.takesNothing() {
		return entities, nil
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

// First returns the first row, or ErrNoElements.
func (b *Builder[T]) First(ctx context.Context) (*T, error) {
	entity, err := b.FirstOrDefault(ctx)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, types.ErrNoElements
	}
	return entity, nil
}

// FirstOrDefault returns the first row, or nil when nothing matches.
func (b *Builder[T]) FirstOrDefault(ctx context.Context) (*T, error) {
	entities, err := b.fetch(ctx, 1)
	if err != nil || len(entities) == 0 {
		return nil, err
	}
	return entities[0], nil
}

// Single returns the only matching row; no rows yields ErrNoElements and
// more than one yields ErrMoreThanOneElement.
func (b *Builder[T]) Single(ctx context.Context) (*T, error) {
	entities, err := b.fetch(ctx, 2)
	if err != nil {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, types.ErrNoElements
	case 1:
		return entities[0], nil
	default:
		return nil, types.ErrMoreThanOneElement
	}
}

// Count returns the number of matching rows, ignoring Skip and Take.
func (b *Builder[T]) Count(ctx context.Context) (int, error) {
	q, err := b.compile((*T)(nil), false)
	if err != nil {
		return 0, err
	}
	return q.Count(ctx)
}

// Any reports whether at least one row matches.
func (b *Builder[T]) Any(ctx context.Context) (bool, error) {
	q, err := b.compile((*T)(nil), false)
	if err != nil {
		return false, err
	}
	return q.Exists(ctx)
}

// Page counts the matching rows and loads one page of them. Skip and Take
// set on the builder are replaced by the page window.
func (b *Builder[T]) Page(ctx context.Context, page, pageSize int) (*types.Pagination[T], error) {
	req := types.NewDefaultPageRequest(page, pageSize)
	pagination := types.NewDefaultPagination[T](req.GetPage(), req.GetPageSize())
	total, err := b.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	offset, limit, limited := b.offset, b.limit, b.limited
	b.offset, b.limit, b.limited = req.GetOffset(), req.GetPageSize(), true
	defer func() { b.offset, b.limit, b.limited = offset, limit, limited }()

	items, err := b.ToList(ctx)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = items
	return pagination, nil
}

func (b *Builder[T]) fetch(ctx context.Context, max int) ([]*T, error) {
	entities := make([]*T, 0, max)
	q, err := b.compile(&entities, true)
	if err != nil {
		return nil, err
	}
	if b.takesNothing() {
		return entities, nil
	}
	if !b.limited || b.limit > max {
		q = q.Limit(max)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

// takesNothing reports a Take(0); bun drops a zero LIMIT, so no query runs.
func (b *Builder[T]) takesNothing() bool {
	return b.limited && b.limit == 0
}
