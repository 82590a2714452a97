// Package log wraps beego's logs package the way the rest of this lineage
// of codebases does: a single rotated file adapter, level functions, and a
// lazily evaluated closure for expensive-to-format arguments.
package log

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/astaxie/beego/logs"
)

type fileConfig struct {
	Filename string `json:"filename"`
	Level    int    `json:"level,omitempty"`
	Rotate   bool   `json:"rotate,omitempty"`
	Daily    bool   `json:"daily,omitempty"`
	MaxDays  int64  `json:"maxdays,omitempty"`
}

func levelOf(strLevel string) (int, bool) {
	switch strings.ToLower(strLevel) {
	case "emergency":
		return logs.LevelEmergency, true
	case "alert":
		return logs.LevelAlert, true
	case "critical":
		return logs.LevelCritical, true
	case "error":
		return logs.LevelError, true
	case "warn", "warning":
		return logs.LevelWarn, true
	case "info":
		return logs.LevelInfo, true
	case "debug":
		return logs.LevelDebug, true
	case "notice":
		return logs.LevelNotice, true
	default:
		return 0, false
	}
}

// Init configures the process-wide file logger. dataDir holds debug.log;
// strLevel is one of the names accepted by levelOf.
func Init(dataDir, strLevel string) error {
	level, ok := levelOf(strLevel)
	if !ok {
		return fmt.Errorf("log: unknown level %q", strLevel)
	}
	cfg, err := json.Marshal(fileConfig{
		Filename: path.Join(dataDir, "debug.log"),
		Rotate:   true,
		Daily:    true,
		MaxDays:  30,
		Level:    level,
	})
	if err != nil {
		return err
	}
	logs.SetLogger(logs.AdapterFile, string(cfg))
	return nil
}

func Debug(format string, args ...interface{})    { logs.Debug(format, args...) }
func Info(format string, args ...interface{})     { logs.Info(format, args...) }
func Warn(format string, args ...interface{})     { logs.Warn(format, args...) }
func Error(format string, args ...interface{})    { logs.Error(format, args...) }
func Critical(format string, args ...interface{}) { logs.Critical(format, args...) }

// Closure defers string formatting until a log statement actually fires at
// the configured level, avoiding the cost of building expensive messages
// (e.g. hex-dumping a block) on a level that is filtered out.
type Closure func() string

func (c Closure) String() string { return c() }

func Lazy(f func() string) Closure { return Closure(f) }
