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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

// colorQueryEnv overrides a hook's settings at runtime:
// "0" disables it, "1" logs failed queries only, "2" logs everything.
const colorQueryEnv = "UOW_QUERY_LOG"

var silentQueries atomic.Bool

// SilenceQueryLog mutes every ColorQueryHook, e.g. while migrations run.
func SilenceQueryLog(b bool) {
	silentQueries.Store(b)
}

var (
	selectColor = color.New(color.FgGreen)
	insertColor = color.New(color.FgBlue)
	updateColor = color.New(color.FgYellow)
	deleteColor = color.New(color.FgMagenta)
	txColor     = color.New(color.FgCyan, color.Bold)
	otherColor  = color.New(color.FgRed)
	errColor    = color.New(color.BgRed, color.FgWhite)
	tagColor    = color.New(color.FgCyan)
)

// ColorQueryHook prints each statement colored by operation. Transaction
// statements (BEGIN, COMMIT, ROLLBACK) are highlighted so batch boundaries
// stand out in the log.
type ColorQueryHook struct {
	verbose bool
	writer  io.Writer
}

var _ bun.QueryHook = (*ColorQueryHook)(nil)

// NewColorQueryHook creates a hook writing to w. With verbose false only
// failed statements are printed.
func NewColorQueryHook(w io.Writer, verbose bool) *ColorQueryHook {
	if w == nil {
		w = os.Stdout
	}
	return &ColorQueryHook{verbose: verbose, writer: w}
}

func (h *ColorQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *ColorQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if silentQueries.Load() {
		return
	}
	verbose := h.verbose
	if env, ok := os.LookupEnv(colorQueryEnv); ok {
		if env == "" || env == "0" {
			return
		}
		verbose = env == "2"
	}

	failed := event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) && !errors.Is(event.Err, sql.ErrTxDone)
	if !verbose && !failed {
		return
	}

	now := time.Now()
	line := fmt.Sprintf("%s %s %12s  %s",
		now.Format("2006-01-02 15:04:05.000"),
		tagColor.Sprint("[UOW]"),
		now.Sub(event.StartTime).Round(time.Microsecond),
		operationColor(event.Operation()).Sprint(event.Query),
	)
	if failed {
		_, class := IsSqlError(event.Err)
		line += "\t" + errColor.Sprintf(" %s: %v ", class, event.Err)
	}
	_, _ = fmt.Fprintln(h.writer, line)
}

func operationColor(operation string) *color.Color {
	switch operation {
	case "SELECT":
		return selectColor
	case "INSERT":
		return insertColor
	case "UPDATE":
		return updateColor
	case "DELETE":
		return deleteColor
	case "BEGIN", "COMMIT", "ROLLBACK":
		return txColor
	default:
		return otherColor
	}
}
