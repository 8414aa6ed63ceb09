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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const timestampFormat = "2006-01-02 15:04:05.000"

var (
	levelMu           sync.RWMutex
	consoleLevel      = logrus.InfoLevel
	fileLevel         = logrus.DebugLevel
	loggerRegistryMu  sync.RWMutex
	loggerRegistry              = map[string]*logrus.Logger{}
	consoleOutput     io.Writer = os.Stdout
	fileLogEnabled              = EnvDefaultBool("FILE_LOG_ENABLED", false)
	fileLogDir                  = EnvDefaultString("FILE_LOG_DIR", "logs")
	fileLogMaxAgeDays           = 7
	consoleLogFormat            = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
)

// ParseLogLevel converts a level name into a logrus level, defaulting to info.
func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogger returns the named logger, creating and registering it on first use.
// Output goes through hooks so console and file levels can differ.
func NewLogger(name string) *logrus.Logger {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	if l, ok := loggerRegistry[name]; ok {
		return l
	}

	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetReportCaller(true)
	l.SetLevel(baseLevel())

	var formatter logrus.Formatter = &Log4jColorFormatter{LoggerName: name, NameWidth: 10}
	if consoleLogFormat == "json" {
		formatter = &JSONLogFormatter{LoggerName: name}
	}
	l.SetFormatter(formatter)
	l.AddHook(&consoleWriterHook{formatter: formatter})
	if fileLogEnabled {
		if err := AddDailyFileHook(l, name, fileLogDir, fileLogMaxAgeDays); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "logger %s: file output disabled: %v\n", name, err)
		}
	}
	loggerRegistry[name] = l
	return l
}

// SetLoggerLevel changes the level of a registered logger. It reports false
// when no logger with that name exists.
func SetLoggerLevel(name string, level string) bool {
	loggerRegistryMu.RLock()
	l, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	lvl := ParseLogLevel(level)
	levelMu.Lock()
	if lvl > consoleLevel {
		consoleLevel = lvl
	}
	levelMu.Unlock()
	l.SetLevel(lvl)
	return true
}

// ConfigureLogLevel sets console and file levels for every registered logger.
func ConfigureLogLevel(level string) {
	lvl := ParseLogLevel(level)
	levelMu.Lock()
	consoleLevel = lvl
	fileLevel = lvl
	levelMu.Unlock()

	loggerRegistryMu.RLock()
	defer loggerRegistryMu.RUnlock()
	for _, l := range loggerRegistry {
		l.SetLevel(lvl)
	}
}

// SetConsoleOutput redirects console output, mainly for tests.
func SetConsoleOutput(w io.Writer) {
	levelMu.Lock()
	defer levelMu.Unlock()
	consoleOutput = w
}

func baseLevel() logrus.Level {
	levelMu.RLock()
	defer levelMu.RUnlock()
	if consoleLevel > fileLevel {
		return consoleLevel
	}
	return fileLevel
}

type consoleWriterHook struct {
	formatter logrus.Formatter
}

func (h *consoleWriterHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *consoleWriterHook) Fire(e *logrus.Entry) error {
	levelMu.RLock()
	lvl, out := consoleLevel, consoleOutput
	levelMu.RUnlock()
	if e.Level > lvl {
		return nil
	}
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = out.Write(b)
	return err
}

// AddDailyFileHook writes entries to <dir>/<yyyy-mm-dd>/<level>.log and removes
// day directories older than maxAgeDays (0 keeps everything).
func AddDailyFileHook(l *logrus.Logger, name, dir string, maxAgeDays int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	writers := make(map[logrus.Level]io.Writer)
	for _, lvl := range logrus.AllLevels {
		fileName := lvl.String()
		if lvl <= logrus.ErrorLevel {
			fileName = "error"
		}
		writers[lvl] = &dailyWriter{baseDir: dir, name: fileName, maxAgeDays: maxAgeDays}
	}
	l.AddHook(&fileWriterHook{writers: writers, formatter: &JSONLogFormatter{LoggerName: name}})
	return nil
}

type fileWriterHook struct {
	writers   map[logrus.Level]io.Writer
	formatter logrus.Formatter
}

func (h *fileWriterHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileWriterHook) Fire(e *logrus.Entry) error {
	levelMu.RLock()
	lvl := fileLevel
	levelMu.RUnlock()
	if e.Level > lvl {
		return nil
	}
	w := h.writers[e.Level]
	if w == nil {
		return nil
	}
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

type dailyWriter struct {
	baseDir    string
	name       string
	maxAgeDays int

	mu      sync.Mutex
	curDate string
	file    *os.File
}

func (w *dailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	today := time.Now().Format("2006-01-02")
	if w.file == nil || w.curDate != today {
		if w.file != nil {
			_ = w.file.Close()
		}
		dir := filepath.Join(w.baseDir, today)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
		f, err := os.OpenFile(filepath.Join(dir, w.name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, err
		}
		w.file, w.curDate = f, today
		w.removeExpired()
	}
	return w.file.Write(p)
}

func (w *dailyWriter) removeExpired() {
	if w.maxAgeDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -w.maxAgeDays)
	entries, err := os.ReadDir(w.baseDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		d, err := time.ParseInLocation("2006-01-02", e.Name(), time.Local)
		if err != nil || !e.IsDir() {
			continue
		}
		if d.Before(cutoff) {
			_ = os.RemoveAll(filepath.Join(w.baseDir, e.Name()))
		}
	}
}

// Log4jColorFormatter renders "time LEVEL pid --- [name] file:line : msg k=v".
type Log4jColorFormatter struct {
	LoggerName string
	NameWidth  int
}

func (f *Log4jColorFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(entry.Time.Format(timestampFormat))
	b.WriteByte(' ')
	b.WriteString(colorLevel(fmt.Sprintf("%5s", strings.ToUpper(entry.Level.String())), entry.Level))
	b.WriteByte(' ')
	b.WriteString(colorWrap(fmt.Sprintf("%-6d", os.Getpid()), ansiMagenta))
	b.WriteString(" --- ")
	b.WriteString(colorWrap(fmt.Sprintf("[%*s]", f.NameWidth, limitRunes(f.LoggerName, f.NameWidth)), ansiCyan))
	if entry.Caller != nil {
		b.WriteByte(' ')
		b.WriteString(colorWrap(callerShort(entry.Caller.File, entry.Caller.Line), ansiFaint))
	}
	b.WriteString(" : ")
	b.WriteString(entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// JSONLogFormatter renders one JSON object per line.
type JSONLogFormatter struct {
	LoggerName string
}

func (f *JSONLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	rec := struct {
		Time    string                 `json:"time"`
		Level   string                 `json:"level"`
		Logger  string                 `json:"logger"`
		Caller  string                 `json:"caller,omitempty"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields,omitempty"`
	}{
		Time:    entry.Time.Format(timestampFormat),
		Level:   entry.Level.String(),
		Logger:  f.LoggerName,
		Message: entry.Message,
	}
	if entry.Caller != nil {
		rec.Caller = callerShort(entry.Caller.File, entry.Caller.Line)
	}
	if len(entry.Data) > 0 {
		rec.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			rec.Fields[k] = v
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

const (
	ansiReset   = "\x1b[0m"
	ansiFaint   = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiYellow  = "\x1b[33m"
	ansiGreen   = "\x1b[32m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

func colorWrap(s, code string) string { return code + s + ansiReset }

func colorLevel(s string, level logrus.Level) string {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorWrap(s, ansiRed)
	case logrus.WarnLevel:
		return colorWrap(s, ansiYellow)
	case logrus.InfoLevel:
		return colorWrap(s, ansiGreen)
	case logrus.DebugLevel:
		return colorWrap(s, ansiBlue)
	default:
		return colorWrap(s, ansiMagenta)
	}
}

// callerShort keeps the parent directory and file name, e.g. "command/executor.go:42".
func callerShort(file string, line int) string {
	parts := strings.Split(filepath.ToSlash(file), "/")
	if len(parts) >= 2 {
		file = parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return file + ":" + strconv.Itoa(line)
}

func limitRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sortedKeys(m logrus.Fields) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}
	return def
}
