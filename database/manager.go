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
	"fmt"
	"maps"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/tomoncle/uow/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

// engine describes how to reach one supported database type.
type engine struct {
	driver  string
	dsn     func(cfg *ConnectionConfig) string
	dialect func() schema.Dialect
}

var (
	mysqlEngine = engine{
		driver:  "mysql",
		dsn:     mysqlDSN,
		dialect: func() schema.Dialect { return mysqldialect.New() },
	}
	postgresEngine = engine{
		driver:  "postgres",
		dsn:     postgresDSN,
		dialect: func() schema.Dialect { return pgdialect.New() },
	}
	sqliteEngine = engine{
		driver:  sqliteshim.ShimName,
		dsn:     func(cfg *ConnectionConfig) string { return SQLiteDSN(cfg.DBName) },
		dialect: func() schema.Dialect { return sqlitedialect.New() },
	}
)

var engines = map[string]engine{
	"mysql":      mysqlEngine,
	"postgres":   postgresEngine,
	"postgresql": postgresEngine,
	"sqlite":     sqliteEngine,
	"sqlite3":    sqliteEngine,
}

func supportedTypes() []string {
	return slices.Sorted(maps.Keys(engines))
}

func isSupportedType(t string) bool {
	_, ok := engines[t]
	return ok
}

func mysqlDSN(cfg *ConnectionConfig) string {
	c := mysql.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.DBName
	c.ParseTime = true
	c.Loc = time.Local
	c.Timeout = cfg.ConnectTimeout
	c.ReadTimeout = cfg.ReadTimeout
	c.WriteTimeout = cfg.WriteTimeout
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

func postgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	query := url.Values{}
	query.Set("sslmode", sslMode)
	query.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.DBName,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// SQLiteDSN maps a configured database name to a sqlite DSN. ":memory:" and
// "" open a private in-memory database.
func SQLiteDSN(name string) string {
	switch {
	case name == "" || name == ":memory:":
		return "file::memory:?mode=memory&cache=shared"
	case strings.HasPrefix(name, "file:"):
		return name
	case strings.HasSuffix(name, ".db"):
		return name
	default:
		return name + ".db"
	}
}

type defaultDatabaseManager struct {
	config *ConnectionConfig
	logger Logger

	mu sync.RWMutex
	db *bun.DB
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun.
// If config is nil, a sensible default configuration is used.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultDatabaseManager{config: config, logger: GetLogger()}
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db != nil {
		return nil
	}

	eng, ok := engines[dm.config.Type]
	if !ok {
		return fmt.Errorf("unsupported database type: %q, supported types: %v", dm.config.Type, supportedTypes())
	}
	dsn := eng.dsn(dm.config)
	sqlDB, err := sql.Open(eng.driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", dm.config.Type, err)
	}
	dm.configurePool(sqlDB, dsn)

	db := bun.NewDB(sqlDB, eng.dialect())
	dm.addHooks(db)
	db.RegisterModel(RegisteredModelInstances()...)

	timeout := dm.config.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.db = db
	dm.logger.Info("Database connected", "type", dm.config.Type, "dialect", db.Dialect().Name().String(),
		"isolation", dm.DefaultIsolationLevel())
	return nil
}

func (dm *defaultDatabaseManager) configurePool(sqlDB *sql.DB, dsn string) {
	if strings.Contains(dsn, "mode=memory") {
		// every pooled connection would otherwise see its own empty database
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		return
	}
	sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)
}

func (dm *defaultDatabaseManager) addHooks(db *bun.DB) {
	if dm.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if dm.config.EnableColorQueryLog {
		db.AddQueryHook(NewColorQueryHook(os.Stdout, true))
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{slowTime: dm.config.SlowQueryTime, logger: dm.logger})
	}
}

func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db == nil {
		return nil
	}
	if open := TransactionStats().Open; open > 0 {
		dm.logger.Warn("Closing database with open transactions", "open", open)
	}
	err := dm.db.Close()
	dm.db = nil
	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
		return err
	}
	dm.logger.Info("Database connection closed")
	return nil
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return ErrNotInitialized
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) DefaultIsolationLevel() types.IsolationLevel {
	return dm.config.IsolationLevel()
}

// HealthCheck pings the database and reports the pool together with the
// transactions currently open on it.
func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{
		LastCheckTime:    start,
		OpenTransactions: TransactionStats().Open,
	}
	db := dm.GetDB()
	if db == nil {
		status.LastError = ErrNotInitialized.Error()
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.LastError = err.Error()
	} else {
		status.Healthy = true
	}

	stats := db.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return status
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	out := &DBStats{Transactions: TransactionStats()}
	db := dm.GetDB()
	if db == nil {
		return out
	}
	stats := db.Stats()
	out.MaxOpenConns = stats.MaxOpenConnections
	out.OpenConns = stats.OpenConnections
	out.InUse = stats.InUse
	out.Idle = stats.Idle
	out.WaitCount = stats.WaitCount
	out.WaitDuration = stats.WaitDuration
	return out
}

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return ErrNotInitialized
	}
	return NewMigrationManager(db, dm.logger).RunMigrations(ctx)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if logger == nil {
		logger = GetLogger()
	}
	dm.logger = logger
}

type slowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

func (h *slowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}
	if d := time.Since(event.StartTime); d > h.slowTime {
		h.logger.Warn("Database slow query detected", "duration", d, "slow_threshold", h.slowTime, "query", event.Query)
	}
}
