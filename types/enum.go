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
	"fmt"
	"strings"
)

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// IsolationLevel selects the isolation of a transaction at open time.
type IsolationLevel int

const (
	LevelUnspecified IsolationLevel = iota
	LevelReadUncommitted
	LevelReadCommitted
	LevelRepeatableRead
	LevelSerializable
	LevelSnapshot
)

var isolationLevelNames = map[IsolationLevel]string{
	LevelUnspecified:     "unspecified",
	LevelReadUncommitted: "read_uncommitted",
	LevelReadCommitted:   "read_committed",
	LevelRepeatableRead:  "repeatable_read",
	LevelSerializable:    "serializable",
	LevelSnapshot:        "snapshot",
}

var isolationLevelDescs = map[IsolationLevel]string{
	LevelUnspecified:     "engine default isolation",
	LevelReadUncommitted: "dirty reads allowed",
	LevelReadCommitted:   "only committed rows are visible",
	LevelRepeatableRead:  "rows read once stay stable",
	LevelSerializable:    "transactions behave as if run one after another",
	LevelSnapshot:        "reads see a snapshot taken at transaction start",
}

var _ BaseEnum = LevelUnspecified

func (l IsolationLevel) IsValid() bool {
	_, ok := isolationLevelNames[l]
	return ok
}

func (l IsolationLevel) Number() int {
	if !l.IsValid() {
		return IllegalValue
	}
	return int(l)
}

func (l IsolationLevel) Name() string {
	if name, ok := isolationLevelNames[l]; ok {
		return name
	}
	return IllegalName
}

func (l IsolationLevel) Desc() string {
	if desc, ok := isolationLevelDescs[l]; ok {
		return desc
	}
	return IllegalDesc
}

func (l IsolationLevel) String() string { return l.Name() }

// ToSQL maps the level onto the database/sql isolation constants.
func (l IsolationLevel) ToSQL() sql.IsolationLevel {
	switch l {
	case LevelReadUncommitted:
		return sql.LevelReadUncommitted
	case LevelReadCommitted:
		return sql.LevelReadCommitted
	case LevelRepeatableRead:
		return sql.LevelRepeatableRead
	case LevelSerializable:
		return sql.LevelSerializable
	case LevelSnapshot:
		return sql.LevelSnapshot
	default:
		return sql.LevelDefault
	}
}

// ParseIsolationLevel accepts names like "read_committed", "READ COMMITTED"
// or "read-committed". An empty string yields LevelUnspecified.
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	if norm == "" || norm == "default" {
		return LevelUnspecified, nil
	}
	for level, name := range isolationLevelNames {
		if name == norm {
			return level, nil
		}
	}
	return LevelUnspecified, fmt.Errorf("unknown isolation level: %q", s)
}

// TxState is the lifecycle state of a transaction handle.
type TxState int

const (
	TxOpen TxState = iota
	TxCommitted
	TxRolledBack
	TxFailed
	TxDisposed
)

func (s TxState) String() string {
	switch s {
	case TxOpen:
		return "open"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	case TxFailed:
		return "failed"
	case TxDisposed:
		return "disposed"
	default:
		return IllegalName
	}
}

// Finished reports whether the transaction can no longer accept work.
func (s TxState) Finished() bool { return s != TxOpen }
