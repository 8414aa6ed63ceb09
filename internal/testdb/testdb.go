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

// Package testdb opens throwaway databases for package tests.
package testdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// User is the model shared by the tests. Name is unique so a duplicate
// insert makes a statement fail halfway through a batch.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
	Age  int    `bun:"age,notnull"`
}

func (u *User) IDColumn() string { return "id" }

func (u *User) GetID() any { return u.ID }

func (u *User) Diff(other *User) []string {
	var cols []string
	if u.Name != other.Name {
		cols = append(cols, "name")
	}
	if u.Age != other.Age {
		cols = append(cols, "age")
	}
	return cols
}

// Post belongs to a User through AuthorID.
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:p"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Title    string `bun:"title,notnull"`
	AuthorID int64  `bun:"author_id,notnull"`
	Author   *User  `bun:"rel:belongs-to,join:author_id=id"`
}

// Open returns a fresh in-memory sqlite database holding empty users and
// posts tables. It is closed when the test ends.
func Open(t testing.TB) *bun.DB {
	t.Helper()
	sqlDB, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	for _, model := range []any{(*User)(nil), (*Post)(nil)} {
		_, err = db.NewCreateTable().Model(model).Exec(context.Background())
		require.NoError(t, err)
	}
	return db
}

// Seed inserts users with the given names; ages count up from 20.
func Seed(t testing.TB, db bun.IDB, names ...string) []*User {
	t.Helper()
	users := make([]*User, 0, len(names))
	for i, name := range names {
		u := &User{Name: name, Age: 20 + i}
		_, err := db.NewInsert().Model(u).Exec(context.Background())
		require.NoError(t, err)
		users = append(users, u)
	}
	return users
}

// Names returns the names stored in the users table ordered by id.
func Names(t testing.TB, db bun.IDB) []string {
	t.Helper()
	names := make([]string, 0)
	err := db.NewSelect().Model((*User)(nil)).Column("name").OrderExpr("id ASC").Scan(context.Background(), &names)
	require.NoError(t, err)
	return names
}

// Mock returns a bun database backed by sqlmock for failure injection.
func Mock(t testing.TB) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}
