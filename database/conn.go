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
	"errors"
	"fmt"
	"sync"

	"github.com/tomoncle/uow/types"
	"github.com/uptrace/bun"
)

// ErrNotInitialized is returned when the global database is used before
// InitDB or after CloseDB.
var ErrNotInitialized = errors.New("database not initialized")

var (
	globalMu      sync.RWMutex
	globalManager AbstractDatabaseManager
)

// GetDB returns the global Bun database instance, or nil before InitDB.
func GetDB() *bun.DB {
	if manager := GetDatabaseManager(); manager != nil {
		return manager.GetDB()
	}
	return nil
}

// GetDatabaseManager returns the global database manager.
func GetDatabaseManager() AbstractDatabaseManager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// DefaultIsolationLevel returns the configured level of the global manager.
func DefaultIsolationLevel() types.IsolationLevel {
	if manager := GetDatabaseManager(); manager != nil {
		return manager.DefaultIsolationLevel()
	}
	return types.LevelUnspecified
}

// InitDB initializes the global database using the provided configuration.
func InitDB(cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	return InitDatabaseWithOptions(context.Background(), cfg, cfg.DataMigrateConfig.EnableMigrateOnStartup)
}

// InitDatabaseWithOptions connects the global database and optionally runs
// migrations. DB_* environment variables override cfg, which is not
// modified. A previously initialized database is closed first.
func InitDatabaseWithOptions(ctx context.Context, cfg *Config, runMigrations bool) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	conn := cfg.ConnectionConfig
	if err := conn.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("invalid database environment: %w", err)
	}
	if err := conn.Validate(); err != nil {
		return nil, err
	}

	manager := NewDatabaseManager(&conn)
	if err := manager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if runMigrations {
		if err := manager.RunMigrations(ctx); err != nil {
			_ = manager.Disconnect()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	globalMu.Lock()
	previous := globalManager
	globalManager = manager
	globalMu.Unlock()
	if previous != nil {
		_ = previous.Disconnect()
	}
	return manager.GetDB(), nil
}

// CloseDB closes the global database connection.
func CloseDB() error {
	globalMu.Lock()
	manager := globalManager
	globalManager = nil
	globalMu.Unlock()
	if manager == nil {
		return nil
	}
	return manager.Disconnect()
}

// GetHealthStatus checks the global database.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if manager := GetDatabaseManager(); manager != nil {
		return manager.HealthCheck(ctx)
	}
	return &HealthStatus{LastError: ErrNotInitialized.Error(), OpenTransactions: TransactionStats().Open}
}

// GetDatabaseStats returns pool and transaction statistics of the global
// database.
func GetDatabaseStats() *DBStats {
	if manager := GetDatabaseManager(); manager != nil {
		return manager.GetStats()
	}
	return &DBStats{Transactions: TransactionStats()}
}

// RunMigrations applies migrations on the global database.
func RunMigrations(ctx context.Context) error {
	manager := GetDatabaseManager()
	if manager == nil {
		return ErrNotInitialized
	}
	return manager.RunMigrations(ctx)
}
