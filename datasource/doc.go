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

// Package datasource implements the unit of work on top of bun.
//
// A Context stages inserts, updates and deletes and flushes them with
// SaveChanges, either into the transaction opened with BeginTransaction or
// into a transaction of its own. EntitySet gives a typed view of one model
// with deferred queries (see package query) and eager-saving mutators.
//
//	dc := datasource.New(db)
//	tx, err := dc.BeginTransaction(types.LevelReadCommitted)
//	if err != nil {
//		return err
//	}
//	defer tx.Close()
//	_ = dc.AddAll(&User{Name: "ann"}, &User{Name: "bob"})
//	if _, err := dc.SaveChanges(); err != nil {
//		return err
//	}
//	return tx.Commit()
//
// Close rolls back a transaction that was not committed and drops the
// changes staged meanwhile.
package datasource
