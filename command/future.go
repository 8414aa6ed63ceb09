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

	"golang.org/x/sync/errgroup"
)

// Future is the single-shot result of an asynchronous batch execution.
type Future[T any] struct {
	group errgroup.Group
	done  chan struct{}
	value T
}

// goFuture runs fn on its own goroutine.
func goFuture[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	f.group.Go(func() error {
		defer close(f.done)
		v, err := fn()
		f.value = v
		return err
	})
	return f
}

// resolved returns a Future that is already complete.
func resolved[T any](v T, err error) *Future[T] {
	return goFuture(func() (T, error) { return v, err })
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the execution finished and returns its result.
func (f *Future[T]) Wait() (T, error) {
	err := f.group.Wait()
	return f.value, err
}

// Await is Wait bounded by ctx. Giving up on ctx does not stop the
// execution, which still commits or rolls back on its own.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Wait()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
