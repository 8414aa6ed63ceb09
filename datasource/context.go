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
	"database/sql"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/tomoncle/uow/database"
	"github.com/tomoncle/uow/query"
	"github.com/tomoncle/uow/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// DataContext stages entity mutations and flushes them together.
type DataContext interface {
	query.Runner

	// SaveChanges flushes every staged change in staging order and returns
	// the summed number of affected rows.
	SaveChanges() (int64, error)
	SaveChangesContext(ctx context.Context) (int64, error)

	// ApplyChanges stages changes and saves at once. When the save fails the
	// changes of this call are dropped; changes staged earlier stay.
	ApplyChanges(ctx context.Context, changes ...Change) (int64, error)

	AddAll(entities ...any) error
	RemoveAll(entities ...any) error
	UpdateAll(entities ...any) error
	Stage(changes ...Change) error
	DiscardChanges()
	PendingChanges() int
}

// TransactionalContext is a DataContext able to open explicit transactions.
// While a transaction is open, DB returns it and SaveChanges writes into it.
type TransactionalContext interface {
	DataContext

	BeginTransaction(level ...types.IsolationLevel) (Transaction, error)
	BeginTransactionContext(ctx context.Context, level ...types.IsolationLevel) (Transaction, error)
	CurrentTransaction() Transaction
}

// Op is the kind of a staged change.
type Op int

const (
	OpInsert Op = iota
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change is one staged mutation. Model must be a pointer to a bun model.
// Updates and deletes match the model's primary key unless Where is set;
// Columns restricts an update to the named columns.
type Change struct {
	Op      Op
	Model   any
	Columns []string
	Where   *types.QueryFilter
}

func (c Change) apply(ctx context.Context, db bun.IDB) (int64, error) {
	var (
		res sql.Result
		err error
	)
	switch c.Op {
	case OpInsert:
		res, err = db.NewInsert().Model(c.Model).Exec(ctx)
	case OpUpdate:
		q := db.NewUpdate().Model(c.Model)
		if len(c.Columns) > 0 {
			q = q.Column(c.Columns...)
		}
		if c.Where.IsEmpty() {
			q = q.WherePK()
		} else {
			q = q.Where(c.Where.Schema, c.Where.Args...)
		}
		res, err = q.Exec(ctx)
	case OpDelete:
		q := db.NewDelete().Model(c.Model)
		if c.Where.IsEmpty() {
			q = q.WherePK()
		} else {
			q = q.Where(c.Where.Schema, c.Where.Args...)
		}
		res, err = q.Exec(ctx)
	default:
		return 0, types.InvalidOperation("unknown change op %d", c.Op)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (c Change) validate() error {
	if c.Op < OpInsert || c.Op > OpDelete {
		return types.InvalidOperation("unknown change op %d", c.Op)
	}
	v := reflect.ValueOf(c.Model)
	if !v.IsValid() || (v.Kind() == reflect.Ptr && v.IsNil()) {
		return types.InvalidOperation("cannot %s a nil entity", c.Op)
	}
	if v.Kind() != reflect.Ptr {
		return types.InvalidOperation("cannot %s %T: entity must be a pointer", c.Op, c.Model)
	}
	return nil
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for transaction and save events.
func WithLogger(logger database.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIsolationLevel sets the level BeginTransaction uses when none is given.
func WithIsolationLevel(level types.IsolationLevel) Option {
	return func(c *Context) {
		c.level = level
	}
}

// Context is the default TransactionalContext on top of a *bun.DB.
type Context struct {
	db     *bun.DB
	logger database.Logger
	level  types.IsolationLevel

	mu      sync.Mutex
	tx      *transaction
	changes []Change
}

var _ TransactionalContext = (*Context)(nil)

// New returns a Context on db. The default isolation level is the one
// configured on the global database manager.
func New(db *bun.DB, opts ...Option) *Context {
	c := &Context{
		db:     db,
		logger: database.GetLogger(),
		level:  database.DefaultIsolationLevel(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DB returns the open transaction, or the database when none is open.
func (c *Context) DB() bun.IDB {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return c.tx.tx
	}
	return c.db
}

// Stage appends changes after validating all of them; nothing is staged
// when one is invalid.
func (c *Context) Stage(changes ...Change) error {
	for _, change := range changes {
		if err := change.validate(); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, changes...)
	return nil
}

func (c *Context) AddAll(entities ...any) error {
	return c.stageAll(OpInsert, entities)
}

func (c *Context) RemoveAll(entities ...any) error {
	return c.stageAll(OpDelete, entities)
}

func (c *Context) UpdateAll(entities ...any) error {
	return c.stageAll(OpUpdate, entities)
}

func (c *Context) stageAll(op Op, entities []any) error {
	changes := make([]Change, 0, len(entities))
	for _, entity := range entities {
		changes = append(changes, Change{Op: op, Model: entity})
	}
	return c.Stage(changes...)
}

func (c *Context) DiscardChanges() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = nil
}

func (c *Context) PendingChanges() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.changes)
}

func (c *Context) SaveChanges() (int64, error) {
	return c.SaveChangesContext(context.Background())
}

// SaveChangesContext flushes the staged changes. Inside an open transaction
// they are written into it; otherwise they run in a transaction of their
// own, and stay staged when that transaction fails.
func (c *Context) SaveChangesContext(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(ctx)
}

func (c *Context) ApplyChanges(ctx context.Context, changes ...Change) (int64, error) {
	for _, change := range changes {
		if err := change.validate(); err != nil {
			return 0, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	mark := len(c.changes)
	c.changes = append(c.changes, changes...)
	rows, err := c.saveLocked(ctx)
	if err != nil {
		clear(c.changes[mark:])
		c.changes = c.changes[:mark]
		return 0, err
	}
	return rows, nil
}

func (c *Context) saveLocked(ctx context.Context) (int64, error) {
	if len(c.changes) == 0 {
		return 0, nil
	}

	if c.tx != nil {
		rows, err := applyChanges(ctx, c.tx.tx, c.changes)
		if err != nil {
			return 0, err
		}
		c.logger.Debug("Changes saved", "tx_id", c.tx.id, "changes", len(c.changes), "rows", rows)
		c.changes = nil
		return rows, nil
	}

	var rows int64
	opts := &sql.TxOptions{Isolation: c.effectiveLevel(c.level).ToSQL()}
	err := c.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		var err error
		rows, err = applyChanges(ctx, tx, c.changes)
		return err
	})
	if err != nil {
		return 0, err
	}
	c.logger.Debug("Changes saved", "changes", len(c.changes), "rows", rows)
	c.changes = nil
	return rows, nil
}

func applyChanges(ctx context.Context, db bun.IDB, changes []Change) (int64, error) {
	var total int64
	for _, change := range changes {
		n, err := change.apply(ctx, db)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (c *Context) BeginTransaction(level ...types.IsolationLevel) (Transaction, error) {
	return c.BeginTransactionContext(context.Background(), level...)
}

// BeginTransactionContext opens a transaction at the given level, or at the
// context default. Only one transaction may be open at a time.
func (c *Context) BeginTransactionContext(ctx context.Context, level ...types.IsolationLevel) (Transaction, error) {
	requested := c.level
	if len(level) > 0 {
		requested = level[0]
	}
	if !requested.IsValid() {
		return nil, types.InvalidOperation("unknown isolation level %d", requested)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return nil, types.InvalidOperation("transaction %s is already open", c.tx.id)
	}

	effective := c.effectiveLevel(requested)
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{Isolation: effective.ToSQL()})
	if err != nil {
		return nil, err
	}
	database.TrackTxBegin(effective != requested)
	c.tx = &transaction{
		id:    uuid.NewString(),
		tx:    tx,
		level: effective,
		owner: c,
		state: types.TxOpen,
	}
	c.logger.Debug("Transaction started", "tx_id", c.tx.id, "isolation", effective.Name())
	return c.tx, nil
}

// CurrentTransaction returns the open transaction or nil.
func (c *Context) CurrentTransaction() Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return nil
	}
	return c.tx
}

// release detaches t once it left the open state; discard drops the staged
// changes. The caller holds t.mu.
func (c *Context) release(t *transaction, discard bool) {
	database.TrackTxEnd(t.state)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == t {
		c.tx = nil
	}
	if discard {
		c.changes = nil
	}
}

// effectiveLevel maps level to one the connected engine accepts.
func (c *Context) effectiveLevel(level types.IsolationLevel) types.IsolationLevel {
	effective := downgradeIsolation(c.db.Dialect().Name(), level)
	if effective != level {
		c.logger.Debug("Isolation level downgraded",
			"dialect", c.db.Dialect().Name().String(), "requested", level.Name(), "effective", effective.Name())
	}
	return effective
}

func downgradeIsolation(name dialect.Name, level types.IsolationLevel) types.IsolationLevel {
	switch name {
	case dialect.SQLite:
		return types.LevelUnspecified
	case dialect.PG:
		switch level {
		case types.LevelReadUncommitted:
			return types.LevelReadCommitted
		case types.LevelSnapshot:
			return types.LevelRepeatableRead
		}
	case dialect.MySQL:
		if level == types.LevelSnapshot {
			return types.LevelRepeatableRead
		}
	}
	return level
}
