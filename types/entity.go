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

package types

// Identifiable exposes the column and value that identify a persisted record.
type Identifiable interface {
	// IDColumn returns the SQL column holding the identifier, e.g. "id".
	IDColumn() string
	// GetID returns the identifier value of this record.
	GetID() any
}

// Entity is the constraint generic repositories place on a model: T is the
// bun model struct and the pointer *T supplies identity and a column diff.
//
// Diff returns the SQL column names whose values differ between the receiver
// and other. An empty result means the two records are equal.
type Entity[T any] interface {
	*T
	Identifiable
	Diff(other *T) []string
}
