// Package log is a minimal levelled logger with per-subsystem subloggers.
// All diagnostics from the backtester flow through here so callers can mute
// or redirect subsystems wholesale.
package log

import (
	"fmt"
	"io"
	"time"
)

func registerSubLogger(name string) *SubLogger {
	sl := &SubLogger{
		name:   name,
		levels: levelDebug | levelInfo | levelWarn | levelError,
	}
	subLoggers[name] = sl
	return sl
}

// SetOutput redirects all log events to w
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetLevels adjusts which levels are emitted for the sublogger, from the
// supplied minimum upwards: "debug", "info", "warn", "error" or "off"
func (sl *SubLogger) SetLevels(minimum string) {
	mu.Lock()
	defer mu.Unlock()
	switch minimum {
	case "debug":
		sl.levels = levelDebug | levelInfo | levelWarn | levelError
	case "info":
		sl.levels = levelInfo | levelWarn | levelError
	case "warn":
		sl.levels = levelWarn | levelError
	case "error":
		sl.levels = levelError
	case "off":
		sl.levels = 0
	}
}

func stage(sl *SubLogger, level uint8, header, data string) {
	mu.RLock()
	defer mu.RUnlock()
	if sl == nil || sl.levels&level == 0 {
		return
	}
	fmt.Fprintf(output, "%s [%s] %s: %s\n",
		time.Now().Format("2006-01-02 15:04:05"), sl.name, header, data)
}

// Info sends an informational event to the sublogger
func Info(sl *SubLogger, data string) {
	stage(sl, levelInfo, "INFO", data)
}

// Infof formats and sends an informational event to the sublogger
func Infof(sl *SubLogger, data string, v ...interface{}) {
	stage(sl, levelInfo, "INFO", fmt.Sprintf(data, v...))
}

// Debug sends a debug event to the sublogger
func Debug(sl *SubLogger, data string) {
	stage(sl, levelDebug, "DEBUG", data)
}

// Debugf formats and sends a debug event to the sublogger
func Debugf(sl *SubLogger, data string, v ...interface{}) {
	stage(sl, levelDebug, "DEBUG", fmt.Sprintf(data, v...))
}

// Warn sends a warning event to the sublogger
func Warn(sl *SubLogger, data string) {
	stage(sl, levelWarn, "WARN", data)
}

// Warnf formats and sends a warning event to the sublogger
func Warnf(sl *SubLogger, data string, v ...interface{}) {
	stage(sl, levelWarn, "WARN", fmt.Sprintf(data, v...))
}

// Error sends an error event to the sublogger
func Error(sl *SubLogger, data string) {
	stage(sl, levelError, "ERROR", data)
}

// Errorf formats and sends an error event to the sublogger
func Errorf(sl *SubLogger, data string, v ...interface{}) {
	stage(sl, levelError, "ERROR", fmt.Sprintf(data, v...))
}
