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
	"time"

	"github.com/tomoncle/uow/types"
	"github.com/uptrace/bun"
)

// AbstractDatabaseManager owns the connection of one configured database.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	RunMigrations(ctx context.Context) error
	GetStats() *DBStats
	SetLogger(logger Logger)
	// DefaultIsolationLevel is the level transactions use when none is given.
	DefaultIsolationLevel() types.IsolationLevel
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy          bool          `json:"healthy"`
	ResponseTime     time.Duration `json:"response_time"`
	ActiveConns      int           `json:"active_conns"`
	IdleConns        int           `json:"idle_conns"`
	MaxOpenConns     int           `json:"max_open_conns"`
	OpenTransactions int64         `json:"open_transactions"`
	LastError        string        `json:"last_error,omitempty"`
	LastCheckTime    time.Time     `json:"last_check_time"`
}

// DBStats combines the pool statistics with the transaction counters.
type DBStats struct {
	MaxOpenConns int           `json:"max_open_conns"`
	OpenConns    int           `json:"open_conns"`
	InUse        int           `json:"in_use"`
	Idle         int           `json:"idle"`
	WaitCount    int64         `json:"wait_count"`
	WaitDuration time.Duration `json:"wait_duration"`
	Transactions TxStats       `json:"transactions"`
}

// ConnectionConfig describes how to connect to a database and tune its pool.
type ConnectionConfig struct {
	Type                  string        `json:"type" yaml:"type"` // postgres, mysql, sqlite
	Host                  string        `json:"host" yaml:"host"`
	Port                  int           `json:"port" yaml:"port"`
	Username              string        `json:"username" yaml:"username"`
	Password              string        `json:"password" yaml:"password"`
	DBName                string        `json:"dbname" yaml:"dbname"` // sqlite: file name without ".db", or ":memory:"
	SSLMode               string        `json:"sslmode" yaml:"sslmode"`
	MaxIdleConns          int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	MaxOpenConns          int           `json:"max_open_conns" yaml:"max_open_conns"`
	ConnMaxLifetime       time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime       time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	ConnectTimeout        time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	ReadTimeout           time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout          time.Duration `json:"write_timeout" yaml:"write_timeout"`
	EnableQueryLog        bool          `json:"enable_query_log" yaml:"enable_query_log"`
	EnableColorQueryLog   bool          `json:"enable_color_query_log" yaml:"enable_color_query_log"`
	SlowQueryTime         time.Duration `json:"slow_query_time" yaml:"slow_query_time"`
	DefaultIsolationLevel string        `json:"default_isolation_level" yaml:"default_isolation_level"`
}

// IsolationLevel parses DefaultIsolationLevel; unknown names fall back to
// the engine default.
func (c *ConnectionConfig) IsolationLevel() types.IsolationLevel {
	level, err := types.ParseIsolationLevel(c.DefaultIsolationLevel)
	if err != nil {
		return types.LevelUnspecified
	}
	return level
}

// DataMigrateConfig controls schema migration behavior on startup.
type DataMigrateConfig struct {
	EnableMigrateOnStartup bool `json:"enable_migrate_on_startup" yaml:"enable_migrate_on_startup"`
}

// Config aggregates connection and migration settings.
type Config struct {
	ConnectionConfig  ConnectionConfig  `json:"connection_config" yaml:"connection"`
	DataMigrateConfig DataMigrateConfig `json:"data_migrate_config" yaml:"migrate"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		ConnectTimeout:  time.Second * 10,
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		EnableQueryLog:  false,
		SlowQueryTime:   time.Second * 2,
	}
}
