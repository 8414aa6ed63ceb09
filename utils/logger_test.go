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

package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		" DEBUG ":  logrus.DebugLevel,
		"warning":  logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"":         logrus.InfoLevel,
		"nonsense": logrus.InfoLevel,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseLogLevel(input), input)
	}
}

func TestJSONLogFormatter(t *testing.T) {
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "rollback",
		Data:    logrus.Fields{"error": errors.New("boom"), "tx": "abc"},
	}
	out, err := (&JSONLogFormatter{LoggerName: "DATABASE"}).Format(entry)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, "warning", rec["level"])
	assert.Equal(t, "DATABASE", rec["logger"])
	assert.Equal(t, map[string]any{"error": "boom", "tx": "abc"}, rec["fields"])
}

func TestLog4jColorFormatter(t *testing.T) {
	entry := &logrus.Entry{
		Time:    time.Now(),
		Level:   logrus.InfoLevel,
		Message: "committed",
		Data:    logrus.Fields{"b": 2, "a": 1},
	}
	out, err := (&Log4jColorFormatter{LoggerName: "UOW", NameWidth: 5}).Format(entry)
	require.NoError(t, err)
	line := string(out)
	assert.Contains(t, line, "committed a=1 b=2")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestNewLogger_ConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	SetConsoleOutput(&buf)
	t.Cleanup(func() { SetConsoleOutput(os.Stdout) })

	l := NewLogger("utils-test")
	assert.Same(t, l, NewLogger("utils-test"))
	l.Info("hello")
	assert.Contains(t, buf.String(), "hello")

	assert.True(t, SetLoggerLevel("utils-test", "debug"))
	assert.False(t, SetLoggerLevel("no-such-logger", "debug"))
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("UOW_TEST_STRING", "value")
	t.Setenv("UOW_TEST_BOOL", "true")
	assert.Equal(t, "value", EnvDefaultString("UOW_TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", EnvDefaultString("UOW_TEST_MISSING", "fallback"))
	assert.True(t, EnvDefaultBool("UOW_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("UOW_TEST_MISSING", true))
}
