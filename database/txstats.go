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
	"sync/atomic"

	"github.com/tomoncle/uow/types"
)

// TxStats counts the unit-of-work transactions of this process.
type TxStats struct {
	Open       int64 `json:"open"`
	Committed  int64 `json:"committed"`
	RolledBack int64 `json:"rolled_back"`
	Failed     int64 `json:"failed"`
	// Downgraded counts transactions begun at a weaker isolation level than
	// requested because the engine does not offer it.
	Downgraded int64 `json:"downgraded"`
}

var txCounters struct {
	open, committed, rolledBack, failed, downgraded atomic.Int64
}

// TrackTxBegin records a newly opened transaction.
func TrackTxBegin(downgraded bool) {
	txCounters.open.Add(1)
	if downgraded {
		txCounters.downgraded.Add(1)
	}
}

// TrackTxEnd records a transaction leaving the open state.
func TrackTxEnd(state types.TxState) {
	txCounters.open.Add(-1)
	switch state {
	case types.TxCommitted:
		txCounters.committed.Add(1)
	case types.TxRolledBack:
		txCounters.rolledBack.Add(1)
	case types.TxFailed:
		txCounters.failed.Add(1)
	}
}

// TransactionStats returns a snapshot of the transaction counters.
func TransactionStats() TxStats {
	return TxStats{
		Open:       txCounters.open.Load(),
		Committed:  txCounters.committed.Load(),
		RolledBack: txCounters.rolledBack.Load(),
		Failed:     txCounters.failed.Load(),
		Downgraded: txCounters.downgraded.Load(),
	}
}
