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

package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultSet_Add(t *testing.T) {
	tests := map[string]struct {
		batches   [][]int64
		wantItems []int64
		wantAdded []int
	}{
		"keeps-first-seen-order": {
			batches:   [][]int64{{3, 1}, {2}},
			wantItems: []int64{3, 1, 2},
			wantAdded: []int{2, 1},
		},
		"drops-duplicates": {
			batches:   [][]int64{{1, 1}, {2, 1}},
			wantItems: []int64{1, 2},
			wantAdded: []int{1, 1},
		},
		"skips-zero-values": {
			batches:   [][]int64{{0}, {5, 0}},
			wantItems: []int64{5},
			wantAdded: []int{0, 1},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rs := NewResultSet[int64]()
			for i, batch := range tt.batches {
				assert.Equal(t, tt.wantAdded[i], rs.Add(batch...))
			}
			assert.Equal(t, tt.wantItems, rs.Items())
			assert.Equal(t, len(tt.wantItems), rs.Len())
			assert.False(t, rs.Contains(0))
		})
	}
}

func TestCommand_Tags(t *testing.T) {
	tests := map[string]struct {
		kind Kind
		mode Mode
		name string
	}{
		"insert": {kind: Insert().Kind(), mode: Insert().Mode(), name: Insert().Name()},
		"delete-async": {
			kind: DeleteAsync().Kind(), mode: DeleteAsync().Mode(), name: DeleteAsync().Name(),
		},
		"read-one": {
			kind: ReadOne[int](nil).Kind(), mode: ReadOne[int](nil).Mode(),
		},
		"read-many-async": {
			kind: ReadManyAsync[int](nil).Named("all").Kind(),
			mode: ReadManyAsync[int](nil).Mode(),
			name: ReadManyAsync[int](nil).Named("all").Name(),
		},
	}
	want := map[string]struct {
		kind Kind
		mode Mode
		name string
	}{
		"insert":          {KindWrite, ModeSync, "insert"},
		"delete-async":    {KindWrite, ModeAsync, "delete"},
		"read-one":        {KindReadOne, ModeSync, ""},
		"read-many-async": {KindReadMany, ModeAsync, "all"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want[name].kind, tt.kind)
			assert.Equal(t, want[name].mode, tt.mode)
			assert.Equal(t, want[name].name, tt.name)
		})
	}
	assert.Equal(t, "read_many", KindReadMany.String())
	assert.False(t, Kind(9).IsValid())
}
