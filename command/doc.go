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

// Package command batches writes and reads into single transactions.
//
// Commands are values of a closed set of shapes: WriteCommand, and
// ReadCommand in its read-one and read-many kinds, each either synchronous
// or asynchronous. An Executor holds one queue of writes and one of reads;
// a queue accepts a single mode, chosen by its first command:
//
//	exec := command.NewExecutor[int64]()
//	_ = exec.QueueWrite(command.Insert(&User{Name: "ann"}))
//	_ = exec.QueueWrite(command.Write(func(dc datasource.DataContext) error {
//		return dc.UpdateAll(existing)
//	}))
//	err := exec.TryExecuteWrites(datasource.New(db))
//
// Either every queued write is committed or none is.
package command
