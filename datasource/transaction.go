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
	"errors"
	"fmt"
	"sync"

	"github.com/tomoncle/uow/types"
	"github.com/uptrace/bun"
)

// Transaction is a handle on an open database transaction of a Context.
//
// Exactly one of Commit or Rollback takes effect. Close must always be
// called, typically deferred right after BeginTransaction; it rolls back a
// transaction that was not committed and is a no-op otherwise.
type Transaction interface {
	ID() string
	State() types.TxState
	IsolationLevel() types.IsolationLevel
	Commit() error
	CommitContext(ctx context.Context) error
	Rollback() error
	RollbackContext(ctx context.Context) error
	Close() error
}

type transaction struct {
	id    string
	tx    bun.Tx
	level types.IsolationLevel
	owner *Context

	mu    sync.Mutex
	state types.TxState
}

var _ Transaction = (*transaction)(nil)

func (t *transaction) ID() string { return t.id }

func (t *transaction) IsolationLevel() types.IsolationLevel { return t.level }

func (t *transaction) State() types.TxState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *transaction) Commit() error {
	return t.CommitContext(context.Background())
}

// CommitContext commits unless ctx is already done. A failed commit leaves
// the handle in TxFailed and its error is returned as is.
func (t *transaction) CommitContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != types.TxOpen {
		return t.closedError()
	}
	if err := t.tx.Commit(); err != nil {
		t.state = types.TxFailed
		t.owner.release(t, true)
		t.owner.logger.Warn("Transaction commit failed", "tx_id", t.id, "error", err)
		return err
	}
	t.state = types.TxCommitted
	t.owner.release(t, false)
	t.owner.logger.Debug("Transaction committed", "tx_id", t.id)
	return nil
}

func (t *transaction) Rollback() error {
	return t.RollbackContext(context.Background())
}

// RollbackContext discards the transaction and every change still staged on
// the owning context.
func (t *transaction) RollbackContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != types.TxOpen {
		return t.closedError()
	}
	return t.rollbackLocked()
}

func (t *transaction) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var err error
	switch t.state {
	case types.TxOpen:
		err = t.rollbackLocked()
	case types.TxFailed:
		err = t.tx.Rollback()
	}
	t.state = types.TxDisposed
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (t *transaction) rollbackLocked() error {
	err := t.tx.Rollback()
	t.state = types.TxRolledBack
	t.owner.release(t, true)
	t.owner.logger.Warn("Transaction rolled back", "tx_id", t.id)
	return err
}

func (t *transaction) closedError() error {
	return fmt.Errorf("%w (%s, state %s): %w", ErrTransactionClosed, t.id, t.state, sql.ErrTxDone)
}
