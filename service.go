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

package uow

import (
	"context"

	"github.com/tomoncle/uow/command"
	"github.com/tomoncle/uow/database"
	"github.com/tomoncle/uow/datasource"
	"github.com/tomoncle/uow/repository"
	"github.com/tomoncle/uow/types"
	"github.com/uptrace/bun"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier, or nil when missing.
	Get(ctx context.Context, id any) (*T, error)

	// Exists reports whether an entity with the identifier is stored.
	Exists(ctx context.Context, id any) (bool, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Count returns the number of entities matching filter; nil counts all.
	Count(ctx context.Context, filter *types.QueryFilter) (int, error)

	// Query runs a where condition and maps the results to entities.
	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// SaveOrUpdate upserts entities based on fields and duplicate keys.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	// Update writes every column of an existing entity.
	Update(ctx context.Context, model *T) error

	// Patch writes only the columns in which model differs from the stored
	// entity with the identifier.
	Patch(ctx context.Context, id any, model *T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// InTransaction runs fn with a repository bound to a new transaction,
	// committing when fn succeeds.
	InTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.Repository[T]) error, level ...types.IsolationLevel) error

	// Batch returns an empty command batch on a fresh unit of work.
	Batch() (*Batch[T], error)

	// SelectBuilder returns a Bun select query builder for the entity.
	SelectBuilder() (*bun.SelectQuery, error)
}

type baseServiceImpl[T any, PT types.Entity[T]] struct {
	db func() *bun.DB
}

// NewService returns a Service on the global database connection. The
// connection is looked up on every call, so the service may be created
// before database.InitDB; calls made before it fail with
// database.ErrNotInitialized.
func NewService[T any, PT types.Entity[T]]() Service[T] {
	return &baseServiceImpl[T, PT]{db: database.GetDB}
}

// NewServiceWithDB returns a Service on db.
func NewServiceWithDB[T any, PT types.Entity[T]](db *bun.DB) Service[T] {
	return &baseServiceImpl[T, PT]{db: func() *bun.DB { return db }}
}

// unit returns a new unit of work; calls do not share staged changes.
func (s *baseServiceImpl[T, PT]) unit() (*datasource.Context, error) {
	db := s.db()
	if db == nil {
		return nil, database.ErrNotInitialized
	}
	return datasource.New(db), nil
}

func (s *baseServiceImpl[T, PT]) repo() (repository.Repository[T], error) {
	dc, err := s.unit()
	if err != nil {
		return nil, err
	}
	return repository.NewRepository[T, PT](dc), nil
}

func (s *baseServiceImpl[T, PT]) Get(ctx context.Context, id any) (*T, error) {
	repo, err := s.repo()
	if err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, id)
}

func (s *baseServiceImpl[T, PT]) Exists(ctx context.Context, id any) (bool, error) {
	repo, err := s.repo()
	if err != nil {
		return false, err
	}
	return repo.HasByID(ctx, id)
}

func (s *baseServiceImpl[T, PT]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.repo()
	if err != nil {
		return nil, err
	}
	return repo.FindAll(ctx)
}

func (s *baseServiceImpl[T, PT]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	repo, err := s.repo()
	if err != nil {
		return nil, err
	}
	return repo.FindAllByFilter(ctx, filter)
}

func (s *baseServiceImpl[T, PT]) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	repo, err := s.repo()
	if err != nil {
		return 0, err
	}
	return repo.CountByFilter(ctx, filter)
}

func (s *baseServiceImpl[T, PT]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	repo, err := s.repo()
	if err != nil {
		return nil, err
	}
	return repo.Query(ctx, query, args...)
}

func (s *baseServiceImpl[T, PT]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.repo()
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, page)
}

func (s *baseServiceImpl[T, PT]) Save(ctx context.Context, model ...*T) error {
	repo, err := s.repo()
	if err != nil {
		return err
	}
	return repo.AddNew(ctx, model...)
}

func (s *baseServiceImpl[T, PT]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	repo, err := s.repo()
	if err != nil {
		return err
	}
	return repo.Upsert(ctx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T, PT]) Update(ctx context.Context, model *T) error {
	repo, err := s.repo()
	if err != nil {
		return err
	}
	return repo.Update(ctx, model)
}

func (s *baseServiceImpl[T, PT]) Patch(ctx context.Context, id any, model *T) error {
	repo, err := s.repo()
	if err != nil {
		return err
	}
	return repo.UpdateByID(ctx, id, model)
}

func (s *baseServiceImpl[T, PT]) Delete(ctx context.Context, id any) error {
	repo, err := s.repo()
	if err != nil {
		return err
	}
	return repo.DeleteByID(ctx, id)
}

func (s *baseServiceImpl[T, PT]) InTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.Repository[T]) error, level ...types.IsolationLevel) error {
	if fn == nil {
		return types.InvalidOperation("nil transaction body")
	}
	dc, err := s.unit()
	if err != nil {
		return err
	}
	repo := repository.NewRepository[T, PT](dc)
	return datasource.RunInTransaction(ctx, dc, func(ctx context.Context) error {
		return fn(ctx, repo)
	}, level...)
}

func (s *baseServiceImpl[T, PT]) Batch() (*Batch[T], error) {
	dc, err := s.unit()
	if err != nil {
		return nil, err
	}
	return &Batch[T]{Executor: command.NewExecutor[*T](), dc: dc}, nil
}

func (s *baseServiceImpl[T, PT]) SelectBuilder() (*bun.SelectQuery, error) {
	db := s.db()
	if db == nil {
		return nil, database.ErrNotInitialized
	}
	return db.NewSelect().Model((*T)(nil)), nil
}

// Batch is a command executor together with the unit of work it runs on.
// Reads collect entities of T.
type Batch[T any] struct {
	*command.Executor[*T]
	dc *datasource.Context
}

// Context returns the unit of work the batch runs on.
func (b *Batch[T]) Context() datasource.TransactionalContext { return b.dc }

// ExecuteWrites runs the queued synchronous writes.
func (b *Batch[T]) ExecuteWrites() error {
	return b.TryExecuteWrites(b.dc)
}

// ExecuteWritesAsync runs the queued asynchronous writes.
func (b *Batch[T]) ExecuteWritesAsync(ctx context.Context) *command.Future[struct{}] {
	return b.TryExecuteWritesAsync(ctx, b.dc)
}

// ExecuteReads runs the queued synchronous reads.
func (b *Batch[T]) ExecuteReads() (*command.ResultSet[*T], error) {
	return b.TryExecuteReads(b.dc)
}

// ExecuteReadsAsync runs the queued asynchronous reads.
func (b *Batch[T]) ExecuteReadsAsync(ctx context.Context) *command.Future[*command.ResultSet[*T]] {
	return b.TryExecuteReadsAsync(ctx, b.dc)
}
