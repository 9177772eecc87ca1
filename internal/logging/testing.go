// internal/logging/testing.go
package logging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a Logger that records every entry at TraceLevel and above.
// The embedded ObservedLogs gives tests All, Len, FilterMessage and friends.
type TestLogger struct {
	*Logger
	*observer.ObservedLogs
}

// NewTestLogger creates an observing logger.
func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger:       &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		ObservedLogs: observed,
	}
}

// Reset drops recorded entries.
func (t *TestLogger) Reset() {
	t.TakeAll()
}

func (t *TestLogger) matching(level zapcore.Level, snippet string) []observer.LoggedEntry {
	return t.FilterLevelExact(level).FilterMessageSnippet(snippet).All()
}

// AssertLogged fails tb unless an entry at level contains snippet.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, snippet string) {
	tb.Helper()
	assert.NotEmpty(tb, t.matching(level, snippet),
		"no %v entry containing %q; got %v", level, snippet, t.messages())
}

// AssertNotLogged fails tb if an entry at level contains snippet.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, snippet string) {
	tb.Helper()
	assert.Empty(tb, t.matching(level, snippet), "unexpected %v entry containing %q", level, snippet)
}

// AssertField fails tb unless an entry containing msg carries key=expected.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, expected any) {
	tb.Helper()
	var seen []any
	for _, entry := range t.FilterMessageSnippet(msg).All() {
		if v, ok := entry.ContextMap()[key]; ok {
			if assert.ObjectsAreEqual(expected, v) {
				return
			}
			seen = append(seen, v)
		}
	}
	assert.Fail(tb, fmt.Sprintf("field %q=%v not found in %q entries", key, expected, msg), "values seen: %v", seen)
}

// AssertNoExchangeText fails tb if text shows up in any message or
// field value, including nested and byte-string fields.
func (t *TestLogger) AssertNoExchangeText(tb testing.TB, text string) {
	tb.Helper()
	for _, entry := range t.All() {
		assert.NotContains(tb, entry.Message, text, "exchange text in message")
		for key, v := range entry.ContextMap() {
			assert.NotContains(tb, fmt.Sprint(v), text, "exchange text in field %q", key)
		}
	}
}

func (t *TestLogger) messages() []string {
	entries := t.All()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Level.String() + " " + e.Message
	}
	return out
}
