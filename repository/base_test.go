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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/uow/database"
	"github.com/tomoncle/uow/datasource"
	"github.com/tomoncle/uow/internal/testdb"
	"github.com/tomoncle/uow/types"
	"github.com/uptrace/bun"
)

type User = testdb.User

// countingHook counts the statements sent to the database.
type countingHook struct {
	statements int
}

func (h *countingHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *countingHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Operation() == "UPDATE" || event.Operation() == "DELETE" || event.Operation() == "INSERT" {
		h.statements++
	}
}

func TestRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	users := testdb.Seed(t, db, "ann", "bob", "cid")
	repo := NewRepository[User](datasource.New(db))

	found, err := repo.FindByID(ctx, users[1].ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "bob", found.Name)

	missing, err := repo.FindByID(ctx, int64(404))
	assert.NoError(t, err)
	assert.Nil(t, missing)

	has, err := repo.HasByID(ctx, users[2].ID)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = repo.HasByID(ctx, int64(404))
	require.NoError(t, err)
	assert.False(t, has)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	older, err := repo.FindAllByFilter(ctx, types.NewQueryFilter("age > ?", 20))
	require.NoError(t, err)
	assert.Len(t, older, 2)

	queried, err := repo.Query(ctx, "name LIKE ?", "a%")
	require.NoError(t, err)
	assert.Len(t, queried, 1)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	count, err = repo.CountByFilter(ctx, types.NewQueryFilter("age = ?", 22))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = repo.CountByFilter(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRepository_UpdateByID(t *testing.T) {
	ctx := context.Background()

	tests := map[string]struct {
		id          func(users []*User) any
		replacement func(users []*User) *User
		wantErr     error
		wantWrites  int
		wantAnn     User
	}{
		"changed-columns-are-written": {
			id: func(users []*User) any { return users[0].ID },
			replacement: func(users []*User) *User {
				return &User{ID: users[0].ID, Name: "anna", Age: users[0].Age}
			},
			wantWrites: 1,
			wantAnn:    User{Name: "anna", Age: 20},
		},
		"identical-replacement-is-a-no-op": {
			id: func(users []*User) any { return users[0].ID },
			replacement: func(users []*User) *User {
				return &User{ID: users[0].ID, Name: "ann", Age: 20}
			},
			wantAnn: User{Name: "ann", Age: 20},
		},
		"replacement-id-is-ignored": {
			id: func(users []*User) any { return users[0].ID },
			replacement: func(users []*User) *User {
				return &User{ID: 777, Name: "ann", Age: 42}
			},
			wantWrites: 1,
			wantAnn:    User{Name: "ann", Age: 42},
		},
		"missing-record": {
			id: func(users []*User) any { return int64(404) },
			replacement: func(users []*User) *User {
				return &User{Name: "ghost"}
			},
			wantErr: datasource.ErrEntityNotFound,
			wantAnn: User{Name: "ann", Age: 20},
		},
		"nil-replacement": {
			id:          func(users []*User) any { return users[0].ID },
			replacement: func(users []*User) *User { return nil },
			wantErr:     datasource.ErrInvalidOperation,
			wantAnn:     User{Name: "ann", Age: 20},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			db := testdb.Open(t)
			users := testdb.Seed(t, db, "ann", "bob")
			hook := &countingHook{}
			db.AddQueryHook(hook)
			repo := NewRepository[User](datasource.New(db))

			err := repo.UpdateByID(ctx, tt.id(users), tt.replacement(users))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantWrites, hook.statements)

			ann, err := repo.FindByID(ctx, users[0].ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAnn.Name, ann.Name)
			assert.Equal(t, tt.wantAnn.Age, ann.Age)
			assert.Equal(t, []string{ann.Name, "bob"}, testdb.Names(t, db))
		})
	}
}

func TestRepository_NotFoundError(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	testdb.Seed(t, db, "ann")
	repo := NewSimpleRepository[User](datasource.New(db))

	err := repo.DeleteByID(ctx, int64(404))
	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "User", notFound.Entity)
	assert.Equal(t, int64(404), notFound.ID)
	assert.ErrorIs(t, err, datasource.ErrEntityNotFound)
	assert.Equal(t, []string{"ann"}, testdb.Names(t, db))
}

func TestRepository_Writes(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	repo := NewRepository[User](datasource.New(db))

	ann, bob := &User{Name: "ann", Age: 30}, &User{Name: "bob", Age: 31}
	require.NoError(t, repo.AddNew(ctx, ann, bob))
	assert.NotZero(t, ann.ID)

	bob.Age = 32
	require.NoError(t, repo.Update(ctx, bob))
	reloaded, err := repo.FindByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 32, reloaded.Age)

	require.NoError(t, repo.DeleteByID(ctx, ann.ID))
	assert.Equal(t, []string{"bob"}, testdb.Names(t, db))

	assert.ErrorIs(t, repo.AddNew(ctx, nil), datasource.ErrInvalidOperation)
}

func TestRepository_WritesJoinOpenTransaction(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	dc := datasource.New(db)
	repo := NewRepository[User](dc)

	tx, err := dc.BeginTransaction()
	require.NoError(t, err)
	require.NoError(t, repo.AddNew(ctx, &User{Name: "ann"}))
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "reads see the transaction's own writes")
	require.NoError(t, tx.Close())

	assert.Empty(t, testdb.Names(t, db))
}

func TestRepository_Page(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	testdb.Seed(t, db, "ann", "bob", "cid", "dan", "eve")
	repo := NewRepository[User](datasource.New(db))

	page, err := repo.Page(ctx, types.NewPageRequest(1, 2,
		types.NewQueryFilter("age >= ?", 21),
		types.SortOrder{Column: "age", Descending: true},
		types.SortOrder{Column: "name"},
	))
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.Pages())
	require.Len(t, page.Items, 2)
	assert.Equal(t, "eve", page.Items[0].Name)
	assert.Equal(t, "dan", page.Items[1].Name)

	defaults, err := repo.Page(ctx, types.NewDefaultPageRequest(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, 5, defaults.Total)
	assert.Len(t, defaults.Items, 5)
}

func TestRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	users := testdb.Seed(t, db, "ann", "bob")
	repo := NewRepository[User](datasource.New(db))

	err := repo.Upsert(ctx, []string{"name", "age"}, nil,
		&User{ID: users[0].ID, Name: "anna", Age: 50},
		&User{ID: 100, Name: "zed", Age: 60},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"anna", "bob", "zed"}, testdb.Names(t, db))

	anna, err := repo.FindByID(ctx, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 50, anna.Age)

	assert.ErrorIs(t, repo.Upsert(ctx, nil, nil, users[0]), datasource.ErrInvalidOperation)
	assert.ErrorIs(t, repo.Upsert(ctx, []string{"age"}, nil, nil), datasource.ErrInvalidOperation)
	assert.NoError(t, repo.Upsert(ctx, []string{"age"}, nil))
}

func TestRepository_ErrorsPropagate(t *testing.T) {
	db, mock := testdb.Mock(t)
	errQuery := errors.New("select failed")
	mock.ExpectQuery("SELECT").WillReturnError(errQuery)

	repo := NewRepository[User](datasource.New(db))
	err := repo.UpdateByID(context.Background(), int64(1), &User{Name: "x"})
	assert.Same(t, errQuery, err)

	ok, class := database.IsSqlError(err)
	assert.False(t, ok)
	assert.Equal(t, database.UnknownErr, class)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Builders(t *testing.T) {
	db := testdb.Open(t)
	repo := NewRepository[User](datasource.New(db))

	assert.Equal(t, db.Dialect().Name(), repo.Dialect().Name())
	assert.NotNil(t, repo.NewSelect())
	assert.NotNil(t, repo.NewInsert())
	assert.NotNil(t, repo.NewUpdate())
	assert.NotNil(t, repo.NewDelete())
	assert.NotNil(t, repo.Set())
}

func TestRepository_FailedWriteLeavesContextUsable(t *testing.T) {
	ctx := context.Background()

	tests := map[string]struct {
		fail func(repo Repository[User], users []*User) error
	}{
		"duplicate-add": {
			fail: func(repo Repository[User], _ []*User) error {
				return repo.AddNew(ctx, &User{Name: "ann"})
			},
		},
		"conflicting-update-by-id": {
			fail: func(repo Repository[User], users []*User) error {
				return repo.UpdateByID(ctx, users[1].ID, &User{Name: "ann", Age: users[1].Age})
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			db := testdb.Open(t)
			users := testdb.Seed(t, db, "ann", "bob")
			dc := datasource.New(db)
			repo := NewRepository[User](dc)

			err := tt.fail(repo, users)
			require.Error(t, err)
			ok, class := database.IsSqlError(err)
			assert.True(t, ok)
			assert.Equal(t, database.DuplicateKeyErr, class)
			assert.Zero(t, dc.PendingChanges())

			require.NoError(t, repo.AddNew(ctx, &User{Name: "zed"}))
			assert.Equal(t, []string{"ann", "bob", "zed"}, testdb.Names(t, db))
		})
	}
}
