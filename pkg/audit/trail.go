// Package audit provides step-by-step recording of valuation runs.
//
// Every engine stage appends entries to a Trail so that a reviewer can
// reconstruct how each breakpoint, solver result, and validation verdict was
// produced without re-running the analysis.
package audit

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entry levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Entry categories, one per engine stage.
const (
	CategoryStructural  = "structural_validation"
	CategoryBreakpoint  = "breakpoint_analysis"
	CategorySolver      = "solver"
	CategoryRVPS        = "rvps"
	CategoryConsistency = "consistency_validation"
	CategoryAllocation  = "allocation"
	CategoryScenario    = "scenario"
	CategorySummary     = "summary"
)

// Entry is a single recorded step of a valuation run.
type Entry struct {
	Timestamp time.Time         `json:"timestamp"`
	Level     string            `json:"level"`
	Category  string            `json:"category"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
}

// Trail accumulates the entries of one valuation run. A Trail is not safe for
// concurrent use; parallel scenario runs record into their own child trails
// which are merged once all scenarios have finished.
type Trail struct {
	RunID     uuid.UUID `json:"runId"`
	CreatedAt time.Time `json:"createdAt"`
	Entries   []Entry   `json:"entries"`

	logger *zap.Logger
	now    func() time.Time
}

// NewTrail creates a trail with a fresh run ID stamped at the current time.
func NewTrail(logger *zap.Logger) *Trail {
	return NewTrailWithClock(logger, time.Now)
}

// NewTrailWithClock creates a trail with an injectable clock for testing.
func NewTrailWithClock(logger *zap.Logger, now func() time.Time) *Trail {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Trail{
		RunID:     uuid.New(),
		CreatedAt: now(),
		logger:    logger,
		now:       now,
	}
}

// Record appends an entry at the given level. Data keys are rendered in
// sorted order by the exporters so the output is deterministic.
func (t *Trail) Record(level, category, message string, data map[string]string) {
	entry := Entry{
		Timestamp: t.now(),
		Level:     level,
		Category:  category,
		Message:   message,
		Data:      data,
	}
	t.Entries = append(t.Entries, entry)

	fields := []zap.Field{
		zap.String("op", "audit.Trail.Record"),
		zap.String("runId", t.RunID.String()),
		zap.String("category", category),
	}
	for _, key := range sortedKeys(data) {
		fields = append(fields, zap.String(key, data[key]))
	}
	switch level {
	case LevelError:
		t.logger.Error(message, fields...)
	case LevelWarning:
		t.logger.Warn(message, fields...)
	default:
		t.logger.Debug(message, fields...)
	}
}

// Info records an informational entry.
func (t *Trail) Info(category, message string, data map[string]string) {
	t.Record(LevelInfo, category, message, data)
}

// Warning records a warning entry.
func (t *Trail) Warning(category, message string, data map[string]string) {
	t.Record(LevelWarning, category, message, data)
}

// Error records an error entry.
func (t *Trail) Error(category, message string, data map[string]string) {
	t.Record(LevelError, category, message, data)
}

// Child creates a trail that shares this trail's logger and clock but has its
// own run ID, for recording one scenario of a multi-scenario run.
func (t *Trail) Child() *Trail {
	return NewTrailWithClock(t.logger, t.now)
}

// Merge appends all of child's entries, preserving their timestamps. The
// child's run ID is recorded on each merged entry so scenario provenance
// survives the merge.
func (t *Trail) Merge(child *Trail) {
	if child == nil {
		return
	}
	for _, entry := range child.Entries {
		if entry.Data == nil {
			entry.Data = map[string]string{}
		} else {
			merged := make(map[string]string, len(entry.Data)+1)
			for k, v := range entry.Data {
				merged[k] = v
			}
			entry.Data = merged
		}
		entry.Data["scenarioRunId"] = child.RunID.String()
		t.Entries = append(t.Entries, entry)
	}
}

// EntriesByCategory returns the entries recorded under the given category in
// insertion order.
func (t *Trail) EntriesByCategory(category string) []Entry {
	var matched []Entry
	for _, entry := range t.Entries {
		if entry.Category == category {
			matched = append(matched, entry)
		}
	}
	return matched
}

// HasErrors reports whether any entry was recorded at the error level.
func (t *Trail) HasErrors() bool {
	for _, entry := range t.Entries {
		if entry.Level == LevelError {
			return true
		}
	}
	return false
}

func sortedKeys(data map[string]string) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
