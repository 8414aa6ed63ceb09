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

package types

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIsolationLevel(t *testing.T) {
	tests := map[string]struct {
		input     string
		want      IsolationLevel
		expectErr bool
	}{
		"empty":         {input: "", want: LevelUnspecified},
		"default":       {input: "default", want: LevelUnspecified},
		"snake":         {input: "read_committed", want: LevelReadCommitted},
		"spaced-upper":  {input: " REPEATABLE READ ", want: LevelRepeatableRead},
		"dashed":        {input: "read-uncommitted", want: LevelReadUncommitted},
		"snapshot":      {input: "snapshot", want: LevelSnapshot},
		"unknown-level": {input: "chaos", expectErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseIsolationLevel(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsolationLevel_ToSQL(t *testing.T) {
	tests := map[IsolationLevel]sql.IsolationLevel{
		LevelUnspecified:     sql.LevelDefault,
		LevelReadUncommitted: sql.LevelReadUncommitted,
		LevelReadCommitted:   sql.LevelReadCommitted,
		LevelRepeatableRead:  sql.LevelRepeatableRead,
		LevelSerializable:    sql.LevelSerializable,
		LevelSnapshot:        sql.LevelSnapshot,
	}
	for level, want := range tests {
		assert.Equal(t, want, level.ToSQL(), level.String())
	}
}

func TestIsolationLevel_Invalid(t *testing.T) {
	bogus := IsolationLevel(42)
	assert.False(t, bogus.IsValid())
	assert.Equal(t, IllegalValue, bogus.Number())
	assert.Equal(t, IllegalName, bogus.Name())
	assert.Equal(t, IllegalDesc, bogus.Desc())
	assert.Equal(t, sql.LevelDefault, bogus.ToSQL())
}

func TestTxState(t *testing.T) {
	assert.False(t, TxOpen.Finished())
	for _, s := range []TxState{TxCommitted, TxRolledBack, TxFailed, TxDisposed} {
		assert.True(t, s.Finished(), s.String())
	}
	assert.Equal(t, "rolled_back", TxRolledBack.String())
	assert.Equal(t, IllegalName, TxState(99).String())
}
