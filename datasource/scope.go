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

	"github.com/tomoncle/uow/types"
)

// RunInTransaction runs fn inside a transaction of dc, saves what fn staged
// and commits. Any error from fn, the save or the commit is returned as is
// and the transaction is rolled back.
func RunInTransaction(ctx context.Context, dc TransactionalContext, fn func(ctx context.Context) error, level ...types.IsolationLevel) error {
	if fn == nil {
		return types.InvalidOperation("nil transaction body")
	}
	tx, err := dc.BeginTransactionContext(ctx, level...)
	if err != nil {
		return err
	}
	defer tx.Close()

	if err := fn(ctx); err != nil {
		return err
	}
	if _, err := dc.SaveChangesContext(ctx); err != nil {
		return err
	}
	return tx.CommitContext(ctx)
}
