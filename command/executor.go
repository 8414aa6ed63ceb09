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
	"context"
	"sync"

	"github.com/tomoncle/uow/database"
	"github.com/tomoncle/uow/datasource"
	"github.com/tomoncle/uow/types"
)

// Executor queues write and read commands and runs each queue as one
// transaction on a data context.
//
// Each queue holds commands of a single Mode, fixed by its first command.
// Queueing a command of the other mode, or running a queue through the
// entry point of the other mode, fails with an invalid-operation error and
// leaves the queue as it was. Every execution attempt empties both queues,
// whatever its outcome. Errors from commands, the save or the commit are
// returned unchanged after the transaction was rolled back.
type Executor[R comparable] struct {
	logger database.Logger
	levels []types.IsolationLevel

	mu     sync.Mutex
	writes []WriteCommand
	reads  []ReadCommand[R]
}

// NewExecutor returns an empty executor using the context's default
// isolation level.
func NewExecutor[R comparable]() *Executor[R] {
	return &Executor[R]{logger: database.GetLogger()}
}

// WithIsolationLevel sets the isolation level of the batch transactions.
func (e *Executor[R]) WithIsolationLevel(level types.IsolationLevel) *Executor[R] {
	e.levels = []types.IsolationLevel{level}
	return e
}

func (e *Executor[R]) WithLogger(logger database.Logger) *Executor[R] {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// QueueWrite appends cmd to the write queue.
func (e *Executor[R]) QueueWrite(cmd WriteCommand) error {
	if !cmd.valid() {
		return types.InvalidOperation("cannot queue an empty write command")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.writes) > 0 && e.writes[0].Mode() != cmd.Mode() {
		return types.InvalidOperation("cannot queue a %s write into a batch of %s writes", cmd.Mode(), e.writes[0].Mode())
	}
	e.writes = append(e.writes, cmd)
	return nil
}

// QueueRead appends cmd to the read queue.
func (e *Executor[R]) QueueRead(cmd ReadCommand[R]) error {
	if !cmd.valid() {
		return types.InvalidOperation("cannot queue an empty read command")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.reads) > 0 && e.reads[0].Mode() != cmd.Mode() {
		return types.InvalidOperation("cannot queue a %s read into a batch of %s reads", cmd.Mode(), e.reads[0].Mode())
	}
	e.reads = append(e.reads, cmd)
	return nil
}

func (e *Executor[R]) PendingWrites() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.writes)
}

func (e *Executor[R]) PendingReads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.reads)
}

// WriteMode returns the mode of the write queue; ok is false when it is empty.
func (e *Executor[R]) WriteMode() (mode Mode, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.writes) == 0 {
		return ModeSync, false
	}
	return e.writes[0].Mode(), true
}

// ReadMode returns the mode of the read queue; ok is false when it is empty.
func (e *Executor[R]) ReadMode() (mode Mode, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.reads) == 0 {
		return ModeSync, false
	}
	return e.reads[0].Mode(), true
}

// TryExecuteWrites runs the synchronous write queue in one transaction.
func (e *Executor[R]) TryExecuteWrites(dc datasource.TransactionalContext) error {
	writes, err := e.takeWrites(ModeSync)
	if err != nil {
		return err
	}
	return e.runWrites(context.Background(), dc, writes)
}

// TryExecuteWritesAsync runs the asynchronous write queue in one transaction
// on a new goroutine.
func (e *Executor[R]) TryExecuteWritesAsync(ctx context.Context, dc datasource.TransactionalContext) *Future[struct{}] {
	writes, err := e.takeWrites(ModeAsync)
	if err != nil {
		return resolved(struct{}{}, err)
	}
	return goFuture(func() (struct{}, error) {
		return struct{}{}, e.runWrites(ctx, dc, writes)
	})
}

// TryExecuteReads runs the synchronous read queue in one transaction and
// collects the results.
func (e *Executor[R]) TryExecuteReads(dc datasource.TransactionalContext) (*ResultSet[R], error) {
	reads, err := e.takeReads(ModeSync)
	if err != nil {
		return nil, err
	}
	return e.runReads(context.Background(), dc, reads)
}

// TryExecuteReadsAsync is TryExecuteReads for the asynchronous read queue.
func (e *Executor[R]) TryExecuteReadsAsync(ctx context.Context, dc datasource.TransactionalContext) *Future[*ResultSet[R]] {
	reads, err := e.takeReads(ModeAsync)
	if err != nil {
		return resolved[*ResultSet[R]](nil, err)
	}
	return goFuture(func() (*ResultSet[R], error) {
		return e.runReads(ctx, dc, reads)
	})
}

// takeWrites checks the write queue against mode and, when it matches,
// empties both queues and returns the writes.
func (e *Executor[R]) takeWrites(mode Mode) ([]WriteCommand, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.writes) > 0 && e.writes[0].Mode() != mode {
		return nil, types.InvalidOperation("%s write execution with %s writes queued", mode, e.writes[0].Mode())
	}
	writes := e.writes
	e.writes, e.reads = nil, nil
	return writes, nil
}

func (e *Executor[R]) takeReads(mode Mode) ([]ReadCommand[R], error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.reads) > 0 && e.reads[0].Mode() != mode {
		return nil, types.InvalidOperation("%s read execution with %s reads queued", mode, e.reads[0].Mode())
	}
	reads := e.reads
	e.writes, e.reads = nil, nil
	return reads, nil
}

func (e *Executor[R]) runWrites(ctx context.Context, dc datasource.TransactionalContext, writes []WriteCommand) error {
	if len(writes) == 0 {
		return nil
	}
	return e.inTransaction(ctx, dc, len(writes), func(ctx context.Context) error {
		for i, cmd := range writes {
			if err := cmd.execute(ctx, dc); err != nil {
				e.logger.Warn("Write command failed", "index", i, "command", cmd.Name(), "error", err)
				return err
			}
		}
		return nil
	})
}

func (e *Executor[R]) runReads(ctx context.Context, dc datasource.TransactionalContext, reads []ReadCommand[R]) (*ResultSet[R], error) {
	results := NewResultSet[R]()
	if len(reads) == 0 {
		return results, nil
	}
	err := e.inTransaction(ctx, dc, len(reads), func(ctx context.Context) error {
		for i, cmd := range reads {
			values, err := cmd.execute(ctx, dc)
			if err != nil {
				e.logger.Warn("Read command failed", "index", i, "command", cmd.Name(), "kind", cmd.Kind(), "error", err)
				return err
			}
			results.Add(values...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// inTransaction opens a transaction, runs body, saves the staged changes and
// commits. On failure the transaction is rolled back and the failure is
// returned as is.
func (e *Executor[R]) inTransaction(ctx context.Context, dc datasource.TransactionalContext, commands int, body func(ctx context.Context) error) error {
	tx, err := dc.BeginTransactionContext(ctx, e.levels...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := tx.Close(); closeErr != nil {
			e.logger.Error("Failed to close batch transaction", "tx_id", tx.ID(), "error", closeErr)
		}
	}()

	e.logger.Debug("Batch started", "tx_id", tx.ID(), "commands", commands)
	if err := body(ctx); err != nil {
		e.rollback(tx, err)
		return err
	}
	rows, err := dc.SaveChangesContext(ctx)
	if err != nil {
		e.rollback(tx, err)
		return err
	}
	if err := tx.CommitContext(ctx); err != nil {
		return err
	}
	e.logger.Debug("Batch committed", "tx_id", tx.ID(), "commands", commands, "rows", rows)
	return nil
}

func (e *Executor[R]) rollback(tx datasource.Transaction, cause error) {
	_, class := database.IsSqlError(cause)
	if err := tx.Rollback(); err != nil {
		_, rbClass := database.IsSqlError(err)
		e.logger.Error("Batch rollback failed", "tx_id", tx.ID(), "cause", cause, "error", err, "class", rbClass)
		return
	}
	e.logger.Warn("Batch rolled back", "tx_id", tx.ID(), "cause", cause, "class", class)
}
