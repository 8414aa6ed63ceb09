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

// Package repository offers generic repositories over a unit of work.
//
// A repository is bound to a datasource.DataContext: reads and writes run
// in the context's open transaction when there is one, and every write is
// saved right away. Models implement types.Entity so the repository knows
// their identifier column and can compute which columns an update changes.
package repository
