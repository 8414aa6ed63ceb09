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
)

// Insert stages entities for insertion on the batch's data context.
func Insert(entities ...any) WriteCommand {
	return Write(func(dc datasource.DataContext) error {
		return dc.AddAll(entities...)
	}).Named("insert")
}

func InsertAsync(entities ...any) WriteCommand {
	return WriteAsync(func(_ context.Context, dc datasource.DataContext) error {
		return dc.AddAll(entities...)
	}).Named("insert")
}

// Update stages entities for a full update matched on primary key.
func Update(entities ...any) WriteCommand {
	return Write(func(dc datasource.DataContext) error {
		return dc.UpdateAll(entities...)
	}).Named("update")
}

func UpdateAsync(entities ...any) WriteCommand {
	return WriteAsync(func(_ context.Context, dc datasource.DataContext) error {
		return dc.UpdateAll(entities...)
	}).Named("update")
}

// Delete stages entities for deletion by primary key.
func Delete(entities ...any) WriteCommand {
	return Write(func(dc datasource.DataContext) error {
		return dc.RemoveAll(entities...)
	}).Named("delete")
}

func DeleteAsync(entities ...any) WriteCommand {
	return WriteAsync(func(_ context.Context, dc datasource.DataContext) error {
		return dc.RemoveAll(entities...)
	}).Named("delete")
}
