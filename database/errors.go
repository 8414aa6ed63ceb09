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
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// SQLError classifies driver errors independently of the engine.
type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoTableErr
	NoColumnErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	SerializationFailureErr
	DeadlockErr
	TxDoneErr
	CanceledErr
)

var sqlErrorNames = map[SQLError]string{
	UnknownErr:                  "unknown",
	NoRowsErr:                   "no_rows",
	NoTableErr:                  "no_table",
	NoColumnErr:                 "no_column",
	DuplicateKeyErr:             "duplicate_key",
	NotNullViolationErr:         "not_null_violation",
	ForeignKeyViolationErr:      "foreign_key_violation",
	CheckConstraintViolationErr: "check_constraint_violation",
	DataTruncatedErr:            "data_truncated",
	SerializationFailureErr:     "serialization_failure",
	DeadlockErr:                 "deadlock",
	TxDoneErr:                   "tx_done",
	CanceledErr:                 "canceled",
}

func (e SQLError) String() string {
	if name, ok := sqlErrorNames[e]; ok {
		return name
	}
	return sqlErrorNames[UnknownErr]
}

// Retryable reports whether re-running the whole transaction may succeed.
func (e SQLError) Retryable() bool {
	return e == SerializationFailureErr || e == DeadlockErr
}

// IsSqlError reports whether err came from the database layer and which class
// it belongs to. Unrecognized errors return (false, UnknownErr).
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return true, NoRowsErr
	case errors.Is(err, sql.ErrTxDone):
		return true, TxDoneErr
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false, CanceledErr
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1146:
			return true, NoTableErr
		case 1054:
			return true, NoColumnErr
		case 1062:
			return true, DuplicateKeyErr
		case 1048:
			return true, NotNullViolationErr
		case 1216, 1217, 1451, 1452:
			return true, ForeignKeyViolationErr
		case 3819:
			return true, CheckConstraintViolationErr
		case 1265, 1406:
			return true, DataTruncatedErr
		case 1213:
			return true, DeadlockErr
		default:
			return true, UnknownErr
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "42P01":
			return true, NoTableErr
		case "42703":
			return true, NoColumnErr
		case "23505":
			return true, DuplicateKeyErr
		case "23502":
			return true, NotNullViolationErr
		case "23503":
			return true, ForeignKeyViolationErr
		case "23514":
			return true, CheckConstraintViolationErr
		case "22001":
			return true, DataTruncatedErr
		case "40001":
			return true, SerializationFailureErr
		case "40P01":
			return true, DeadlockErr
		default:
			return true, UnknownErr
		}
	}

	// sqlite and wrapped drivers only expose text.
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "sqlstate 42p01"),
		strings.Contains(s, "undefined table"),
		strings.Contains(s, "no such table"):
		return true, NoTableErr
	case strings.Contains(s, "sqlstate 42703"),
		strings.Contains(s, "undefined column"),
		strings.Contains(s, "no such column"):
		return true, NoColumnErr
	case strings.Contains(s, "duplicate key value"),
		strings.Contains(s, "unique constraint failed"),
		strings.Contains(s, "sqlstate 23505"):
		return true, DuplicateKeyErr
	case strings.Contains(s, "not-null constraint"),
		strings.Contains(s, "not null constraint failed"),
		strings.Contains(s, "sqlstate 23502"):
		return true, NotNullViolationErr
	case strings.Contains(s, "foreign key violation"),
		strings.Contains(s, "foreign key constraint failed"),
		strings.Contains(s, "sqlstate 23503"):
		return true, ForeignKeyViolationErr
	case strings.Contains(s, "check constraint"),
		strings.Contains(s, "sqlstate 23514"):
		return true, CheckConstraintViolationErr
	case strings.Contains(s, "string data right truncation"),
		strings.Contains(s, "sqlstate 22001"):
		return true, DataTruncatedErr
	case strings.Contains(s, "could not serialize access"),
		strings.Contains(s, "sqlstate 40001"):
		return true, SerializationFailureErr
	case strings.Contains(s, "deadlock detected"),
		strings.Contains(s, "sqlstate 40p01"),
		strings.Contains(s, "database is locked"):
		return true, DeadlockErr
	}
	return false, UnknownErr
}
