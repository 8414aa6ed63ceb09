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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/uow/internal/testdb"
)

func TestEntitySet_Find(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	users := testdb.Seed(t, db, "ann", "bob")
	set := Set[User](New(db))

	found, err := set.Find(ctx, users[1].ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "bob", found.Name)

	missing, err := set.Find(ctx, int64(999))
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = set.Find(ctx, 1, 2)
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = set.Find(ctx)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestEntitySet_Terminals(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	set := Set[User](New(db))

	_, err := set.First(ctx)
	assert.ErrorIs(t, err, ErrNoElements)
	none, err := set.FirstOrDefault(ctx)
	assert.NoError(t, err)
	assert.Nil(t, none)
	_, err = set.Single(ctx)
	assert.ErrorIs(t, err, ErrNoElements)

	testdb.Seed(t, db, "ann", "bob", "cid")

	_, err = set.Single(ctx)
	assert.ErrorIs(t, err, ErrMoreThanOneElement)

	only, err := set.Where("name = ?", "bob").Single(ctx)
	require.NoError(t, err)
	assert.Equal(t, 21, only.Age)

	count, err := set.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	exists, err := set.Where("age > ?", 30).Any(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	list, err := set.ToList(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestEntitySet_EagerMutators(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	dc := New(db)
	set := Set[User](dc)

	ann := &User{Name: "ann", Age: 30}
	require.NoError(t, set.Add(ctx, ann))
	assert.NotZero(t, ann.ID)
	assert.Equal(t, 0, dc.PendingChanges())

	bob, cid := &User{Name: "bob"}, &User{Name: "cid"}
	require.NoError(t, set.AddRange(ctx, bob, cid))
	assert.Equal(t, []string{"ann", "bob", "cid"}, testdb.Names(t, db))

	ann.Age = 31
	require.NoError(t, set.Update(ctx, ann))
	reloaded, err := set.Find(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, 31, reloaded.Age)

	require.NoError(t, set.Remove(ctx, bob))
	require.NoError(t, set.RemoveRange(ctx, cid))
	assert.Equal(t, []string{"ann"}, testdb.Names(t, db))

	assert.ErrorIs(t, set.Add(ctx, nil), ErrInvalidOperation)
	assert.ErrorIs(t, set.RemoveRange(ctx, ann, nil), ErrInvalidOperation)
	assert.Equal(t, []string{"ann"}, testdb.Names(t, db))
}
