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
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tomoncle/uow/types"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML configuration file. Keys missing from the file keep
// the values of DefaultConnectionConfig.
//
//	connection:
//	  type: postgres
//	  host: 127.0.0.1
//	  port: 5432
//	  dbname: app
//	  default_isolation_level: read_committed
//	migrate:
//	  enable_migrate_on_startup: true
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML bytes into a Config on top of the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{ConnectionConfig: *DefaultConnectionConfig()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail later at connect time.
func (c *Config) Validate() error {
	return c.ConnectionConfig.Validate()
}

func (c *ConnectionConfig) Validate() error {
	if !isSupportedType(c.Type) {
		return fmt.Errorf("unsupported database type: %q, supported types: %v", c.Type, supportedTypes())
	}
	if _, err := types.ParseIsolationLevel(c.DefaultIsolationLevel); err != nil {
		return err
	}
	return nil
}

type envSetter func(c *ConnectionConfig, v string) error

func envString(field func(c *ConnectionConfig) *string) envSetter {
	return func(c *ConnectionConfig, v string) error {
		*field(c) = v
		return nil
	}
}

func envInt(field func(c *ConnectionConfig) *int) envSetter {
	return func(c *ConnectionConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func envBool(field func(c *ConnectionConfig) *bool) envSetter {
	return func(c *ConnectionConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

// envDuration accepts Go durations ("90s") or a plain number of seconds.
func envDuration(field func(c *ConnectionConfig) *time.Duration) envSetter {
	return func(c *ConnectionConfig, v string) error {
		if secs, err := strconv.Atoi(v); err == nil {
			*field(c) = time.Duration(secs) * time.Second
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

// envOverrides maps environment variables onto connection settings.
var envOverrides = []struct {
	key string
	set envSetter
}{
	{"DB_TYPE", envString(func(c *ConnectionConfig) *string { return &c.Type })},
	{"DB_HOST", envString(func(c *ConnectionConfig) *string { return &c.Host })},
	{"DB_PORT", envInt(func(c *ConnectionConfig) *int { return &c.Port })},
	{"DB_USERNAME", envString(func(c *ConnectionConfig) *string { return &c.Username })},
	{"DB_PASSWORD", envString(func(c *ConnectionConfig) *string { return &c.Password })},
	{"DB_NAME", envString(func(c *ConnectionConfig) *string { return &c.DBName })},
	{"DB_SSLMODE", envString(func(c *ConnectionConfig) *string { return &c.SSLMode })},
	{"DB_MAX_IDLE_CONNS", envInt(func(c *ConnectionConfig) *int { return &c.MaxIdleConns })},
	{"DB_MAX_OPEN_CONNS", envInt(func(c *ConnectionConfig) *int { return &c.MaxOpenConns })},
	{"DB_CONN_MAX_LIFETIME", envDuration(func(c *ConnectionConfig) *time.Duration { return &c.ConnMaxLifetime })},
	{"DB_SLOW_QUERY_TIME", envDuration(func(c *ConnectionConfig) *time.Duration { return &c.SlowQueryTime })},
	{"DB_ENABLE_QUERY_LOG", envBool(func(c *ConnectionConfig) *bool { return &c.EnableQueryLog })},
	{"DB_ISOLATION_LEVEL", func(c *ConnectionConfig, v string) error {
		if _, err := types.ParseIsolationLevel(v); err != nil {
			return err
		}
		c.DefaultIsolationLevel = v
		return nil
	}},
}

// ApplyEnv overrides settings from DB_* environment variables. Malformed
// values are reported together and leave their setting untouched.
func (c *ConnectionConfig) ApplyEnv() error {
	var errs []error
	for _, o := range envOverrides {
		v, ok := os.LookupEnv(o.key)
		if !ok || v == "" {
			continue
		}
		if err := o.set(c, v); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", o.key, v, err))
		}
	}
	return errors.Join(errs...)
}
