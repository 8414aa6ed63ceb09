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
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// MigrationManager applies versioned migrations, each inside its own
// transaction together with its tracking record.
type MigrationManager struct {
	db         *bun.DB
	logger     Logger
	registry   ModelRegistry
	migrations []MigrationItem
}

// Migration is an applied migration record stored in the database.
type Migration struct {
	bun.BaseModel `bun:"table:uow_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// NewMigrationManager constructs a MigrationManager creating the tables of the
// default model registry as migration "000".
func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	if logger == nil {
		logger = GetLogger()
	}
	mm := &MigrationManager{db: db, logger: logger, registry: defaultRegistry}
	mm.migrations = []MigrationItem{{
		Version:     "000",
		Name:        "create_registered_tables",
		Description: "Create tables for registered models",
		Up:          mm.createRegisteredTables,
	}}
	return mm
}

// WithRegistry replaces the model registry used by migration "000".
func (mm *MigrationManager) WithRegistry(registry ModelRegistry) *MigrationManager {
	mm.registry = registry
	return mm
}

// Register adds migrations; they run in ascending Version order.
func (mm *MigrationManager) Register(items ...MigrationItem) *MigrationManager {
	mm.migrations = append(mm.migrations, items...)
	return mm
}

// RunMigrations creates the tracking table if needed and applies every
// migration not yet recorded.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return ErrNotInitialized
	}
	if _, ok := os.LookupEnv("UOW_QUERY_LOG_MIGRATION"); !ok {
		SilenceQueryLog(true)
		defer SilenceQueryLog(false)
	}

	if _, err := mm.db.NewCreateTable().Model((*Migration)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations := make([]MigrationItem, len(mm.migrations))
	copy(migrations, mm.migrations)
	sort.SliceStable(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for _, migration := range migrations {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	mm.logger.Info("Database migrations completed", "count", len(migrations))
	return nil
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", migration.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	tx, err := mm.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	var committed bool
	defer func() {
		if committed {
			return
		}
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			mm.logger.Error("Failed to rollback migration transaction", "version", migration.Version, "error", rollbackErr)
		}
	}()

	if migration.Up != nil {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
	}

	record := &Migration{
		Version:     migration.Version,
		Name:        migration.Name,
		AppliedAt:   time.Now(),
		Description: migration.Description,
	}
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
	return nil
}

func (mm *MigrationManager) createRegisteredTables(ctx context.Context, db bun.IDB) error {
	for _, model := range mm.registry.Instances() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

// AppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) AppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}
