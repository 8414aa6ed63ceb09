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

// Package query provides a deferred fluent query builder over bun.
//
// A Builder records filters, sorts, relations and paging and compiles them
// into a single *bun.SelectQuery only when a terminal method such as ToList,
// First, Single, Count, Any or Page runs:
//
//	users, err := query.New[User](query.FromDB(db)).
//		Where("age >= ?", 18).
//		OrderBy("name").
//		ThenByDescending("age").
//		Take(10).
//		ToList(ctx)
//
// Usage errors, e.g. ThenBy without a prior OrderBy, are recorded on the
// builder and returned by Err and by every terminal method before any
// statement is sent.
package query
