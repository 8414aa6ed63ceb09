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

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperation marks a call that violates a usage precondition.
	// It is returned before any statement reaches the database.
	ErrInvalidOperation = errors.New("uow: invalid operation")
	// ErrEntityNotFound marks a lookup by identifier that matched no record.
	ErrEntityNotFound = errors.New("uow: entity not found")
	// ErrNoElements is returned by First and Single on an empty result.
	ErrNoElements = errors.New("uow: sequence contains no elements")
	// ErrMoreThanOneElement is returned by Single when several rows match.
	ErrMoreThanOneElement = errors.New("uow: sequence contains more than one element")
	// ErrTransactionClosed is returned when a finished transaction is used.
	ErrTransactionClosed = errors.New("uow: transaction already closed")
)

// InvalidOperation returns an error matching ErrInvalidOperation.
func InvalidOperation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}
