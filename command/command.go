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

	"github.com/tomoncle/uow/datasource"
	"github.com/tomoncle/uow/types"
)

// Kind tells writes from single-result and multi-result reads.
type Kind int

const (
	KindWrite Kind = iota
	KindReadOne
	KindReadMany
)

var kindNames = map[Kind]string{
	KindWrite:    "write",
	KindReadOne:  "read_one",
	KindReadMany: "read_many",
}

var _ types.BaseEnum = KindWrite

func (k Kind) IsValid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) Number() int { return int(k) }

func (k Kind) Name() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return types.IllegalName
}

func (k Kind) Desc() string { return k.Name() + " command" }

func (k Kind) String() string { return k.Name() }

// Mode is the execution mode a command was built for.
type Mode int

const (
	ModeSync Mode = iota
	ModeAsync
)

func (m Mode) String() string {
	if m == ModeAsync {
		return "async"
	}
	return "sync"
}

// WriteCommand mutates the data context it runs on. Build one with Write,
// WriteAsync or one of the ready-made Insert, Update and Delete commands.
// The zero value is not a valid command.
type WriteCommand struct {
	name  string
	mode  Mode
	sync  func(dc datasource.DataContext) error
	async func(ctx context.Context, dc datasource.DataContext) error
}

// Write returns a synchronous write command.
func Write(fn func(dc datasource.DataContext) error) WriteCommand {
	return WriteCommand{mode: ModeSync, sync: fn}
}

// WriteAsync returns an asynchronous write command; it receives the context
// of the batch execution.
func WriteAsync(fn func(ctx context.Context, dc datasource.DataContext) error) WriteCommand {
	return WriteCommand{mode: ModeAsync, async: fn}
}

// Named returns a copy of c labelled name in logs.
func (c WriteCommand) Named(name string) WriteCommand {
	c.name = name
	return c
}

func (c WriteCommand) Name() string { return c.name }

func (c WriteCommand) Kind() Kind { return KindWrite }

func (c WriteCommand) Mode() Mode { return c.mode }

func (c WriteCommand) valid() bool {
	if c.mode == ModeAsync {
		return c.async != nil
	}
	return c.sync != nil
}

func (c WriteCommand) execute(ctx context.Context, dc datasource.DataContext) error {
	if c.mode == ModeAsync {
		return c.async(ctx, dc)
	}
	return c.sync(dc)
}

// ReadCommand produces values of R: one value for KindReadOne, any number
// for KindReadMany. A read-one command reports "nothing found" by returning
// the zero value of R.
type ReadCommand[R any] struct {
	name      string
	kind      Kind
	mode      Mode
	one       func(dc datasource.DataContext) (R, error)
	oneAsync  func(ctx context.Context, dc datasource.DataContext) (R, error)
	many      func(dc datasource.DataContext) ([]R, error)
	manyAsync func(ctx context.Context, dc datasource.DataContext) ([]R, error)
}

func ReadOne[R any](fn func(dc datasource.DataContext) (R, error)) ReadCommand[R] {
	return ReadCommand[R]{kind: KindReadOne, mode: ModeSync, one: fn}
}

func ReadOneAsync[R any](fn func(ctx context.Context, dc datasource.DataContext) (R, error)) ReadCommand[R] {
	return ReadCommand[R]{kind: KindReadOne, mode: ModeAsync, oneAsync: fn}
}

func ReadMany[R any](fn func(dc datasource.DataContext) ([]R, error)) ReadCommand[R] {
	return ReadCommand[R]{kind: KindReadMany, mode: ModeSync, many: fn}
}

func ReadManyAsync[R any](fn func(ctx context.Context, dc datasource.DataContext) ([]R, error)) ReadCommand[R] {
	return ReadCommand[R]{kind: KindReadMany, mode: ModeAsync, manyAsync: fn}
}

func (c ReadCommand[R]) Named(name string) ReadCommand[R] {
	c.name = name
	return c
}

func (c ReadCommand[R]) Name() string { return c.name }

func (c ReadCommand[R]) Kind() Kind { return c.kind }

func (c ReadCommand[R]) Mode() Mode { return c.mode }

func (c ReadCommand[R]) valid() bool {
	switch {
	case c.kind == KindReadOne && c.mode == ModeSync:
		return c.one != nil
	case c.kind == KindReadOne && c.mode == ModeAsync:
		return c.oneAsync != nil
	case c.kind == KindReadMany && c.mode == ModeSync:
		return c.many != nil
	case c.kind == KindReadMany && c.mode == ModeAsync:
		return c.manyAsync != nil
	default:
		return false
	}
}

func (c ReadCommand[R]) execute(ctx context.Context, dc datasource.DataContext) ([]R, error) {
	switch {
	case c.kind == KindReadOne && c.mode == ModeSync:
		v, err := c.one(dc)
		return []R{v}, err
	case c.kind == KindReadOne && c.mode == ModeAsync:
		v, err := c.oneAsync(ctx, dc)
		return []R{v}, err
	case c.kind == KindReadMany && c.mode == ModeSync:
		return c.many(dc)
	default:
		return c.manyAsync(ctx, dc)
	}
}
