// Package logging provides categorized file-based logging for the AGCodex
// core. Each category writes to its own file under <workspace>/.agcodex/logs/.
// Logging is a silent no-op until Initialize is called with debug mode on,
// so library code can log unconditionally.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a log stream.
type Category string

const (
	CategoryBoot         Category = "boot"         // Startup and config loading
	CategoryMode         Category = "mode"         // Mode transitions and gate denials
	CategoryParser       Category = "parser"       // Parser pool and parse cache
	CategoryIndex        Category = "index"        // Multi-layer index and cascade
	CategoryTools        Category = "tools"        // Tool execution
	CategoryAgents       Category = "agents"       // Agent registry and descriptors
	CategoryInvoke       Category = "invoke"       // Invocation parsing
	CategoryOrchestrator Category = "orchestrator" // Plan execution, retries, breaker
)

// Config controls which categories log and at what level.
type Config struct {
	DebugMode  bool
	Level      string // debug, info, warn, error
	Categories map[string]bool
}

var (
	mu      sync.RWMutex
	cfg     Config
	logsDir string
	loggers = make(map[Category]*zap.SugaredLogger)
	nop     = zap.NewNop().Sugar()
)

// Initialize sets up the logging directory for the given workspace.
// With DebugMode false this is a no-op and all loggers stay silent.
func Initialize(workspace string, c Config) error {
	mu.Lock()
	defer mu.Unlock()

	cfg = c
	loggers = make(map[Category]*zap.SugaredLogger)
	logsDir = ""

	if !c.DebugMode {
		return nil
	}
	if workspace == "" {
		return fmt.Errorf("workspace path required")
	}

	dir := filepath.Join(workspace, ".agcodex", "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create logs directory: %w", err)
	}
	logsDir = dir
	return nil
}

// Shutdown flushes and closes every open logger.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		_ = l.Sync()
	}
	loggers = make(map[Category]*zap.SugaredLogger)
	logsDir = ""
}

func level() zapcore.Level {
	switch cfg.Level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func enabled(category Category) bool {
	if !cfg.DebugMode {
		return false
	}
	if cfg.Categories == nil {
		return true
	}
	on, known := cfg.Categories[string(category)]
	if !known {
		return true
	}
	return on
}

// Get returns the logger for a category, creating it on first use.
// Disabled categories get a shared no-op logger.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	dir := logsDir
	on := enabled(category)
	mu.RUnlock()

	if dir == "" || !on {
		return nop
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	// Initialize may have run between the two lock sections.
	if logsDir == "" || !enabled(category) {
		return nop
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", path, err)
		return nop
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level())
	l := zap.New(core).Sugar().With("category", string(category))
	loggers[category] = l
	return l
}

// =============================================================================
// CONVENIENCE FUNCTIONS - no-ops when the category is disabled
// =============================================================================

// Boot logs to the boot category.
func Boot(format string, args ...any) { Get(CategoryBoot).Infof(format, args...) }

// Mode logs to the mode category.
func Mode(format string, args ...any) { Get(CategoryMode).Infof(format, args...) }

// ModeDebug logs debug to the mode category.
func ModeDebug(format string, args ...any) { Get(CategoryMode).Debugf(format, args...) }

// Parser logs to the parser category.
func Parser(format string, args ...any) { Get(CategoryParser).Infof(format, args...) }

// ParserDebug logs debug to the parser category.
func ParserDebug(format string, args ...any) { Get(CategoryParser).Debugf(format, args...) }

// Index logs to the index category.
func Index(format string, args ...any) { Get(CategoryIndex).Infof(format, args...) }

// IndexDebug logs debug to the index category.
func IndexDebug(format string, args ...any) { Get(CategoryIndex).Debugf(format, args...) }

// Tools logs to the tools category.
func Tools(format string, args ...any) { Get(CategoryTools).Infof(format, args...) }

// ToolsDebug logs debug to the tools category.
func ToolsDebug(format string, args ...any) { Get(CategoryTools).Debugf(format, args...) }

// ToolsError logs error to the tools category.
func ToolsError(format string, args ...any) { Get(CategoryTools).Errorf(format, args...) }

// Agents logs to the agents category.
func Agents(format string, args ...any) { Get(CategoryAgents).Infof(format, args...) }

// AgentsDebug logs debug to the agents category.
func AgentsDebug(format string, args ...any) { Get(CategoryAgents).Debugf(format, args...) }

// AgentsWarn logs warning to the agents category.
func AgentsWarn(format string, args ...any) { Get(CategoryAgents).Warnf(format, args...) }

// Invoke logs to the invoke category.
func Invoke(format string, args ...any) { Get(CategoryInvoke).Infof(format, args...) }

// InvokeDebug logs debug to the invoke category.
func InvokeDebug(format string, args ...any) { Get(CategoryInvoke).Debugf(format, args...) }

// Orchestrator logs to the orchestrator category.
func Orchestrator(format string, args ...any) { Get(CategoryOrchestrator).Infof(format, args...) }

// OrchestratorDebug logs debug to the orchestrator category.
func OrchestratorDebug(format string, args ...any) {
	Get(CategoryOrchestrator).Debugf(format, args...)
}

// OrchestratorWarn logs warning to the orchestrator category.
func OrchestratorWarn(format string, args ...any) {
	Get(CategoryOrchestrator).Warnf(format, args...)
}

// OrchestratorError logs error to the orchestrator category.
func OrchestratorError(format string, args ...any) {
	Get(CategoryOrchestrator).Errorf(format, args...)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer measures an operation's duration for a category.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debugf("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold warns when the duration exceeds the threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warnf("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debugf("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
