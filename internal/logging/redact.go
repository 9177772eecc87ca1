// internal/logging/redact.go
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const maxPatternLen = 200

// exchangeMarshaler logs the shape of an exchange without its content.
type exchangeMarshaler string

func (e exchangeMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	sum := sha256.Sum256([]byte(e))
	enc.AddInt("len", len(e))
	enc.AddString("sha256", hex.EncodeToString(sum[:4]))
	return nil
}

// Exchange identifies an exchange by length and a short digest, so log
// lines can be correlated without carrying the text.
func Exchange(key, text string) zap.Field {
	return zap.Object(key, exchangeMarshaler(text))
}

// RedactedString logs only the length of val.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, masked(len(val)))
}

func masked(n int) string { return fmt.Sprintf("[REDACTED:%d]", n) }

// redactor decides what a field may reveal.
type redactor struct {
	keys     map[string]struct{}
	patterns []*regexp.Regexp
}

func newRedactor(cfg RedactionConfig) (*redactor, error) {
	r := &redactor{keys: make(map[string]struct{}, len(cfg.Fields))}
	for _, f := range cfg.Fields {
		r.keys[strings.ToLower(f)] = struct{}{}
	}
	for _, p := range cfg.Patterns {
		if len(p) > maxPatternLen {
			return nil, fmt.Errorf("redaction pattern too long (max %d chars): %q", maxPatternLen, p)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

func (r *redactor) sensitiveKey(key string) bool {
	_, ok := r.keys[strings.ToLower(key)]
	return ok
}

// text returns the replacement for a string value, if any.
func (r *redactor) text(key, val string) (string, bool) {
	if r.sensitiveKey(key) {
		return masked(len(val)), true
	}
	for _, re := range r.patterns {
		if re.MatchString(val) {
			return "[REDACTED:pattern]", true
		}
	}
	return "", false
}

// field rewrites f if it would expose exchange text or a credential.
// Exchange objects are left alone; they only carry a digest.
func (r *redactor) field(f zapcore.Field) zapcore.Field {
	switch f.Type {
	case zapcore.StringType:
		if s, ok := r.text(f.Key, f.String); ok {
			return zap.String(f.Key, s)
		}
	case zapcore.ByteStringType:
		if b, ok := f.Interface.([]byte); ok {
			if s, ok := r.text(f.Key, string(b)); ok {
				return zap.String(f.Key, s)
			}
		}
	case zapcore.ObjectMarshalerType:
	default:
		if r.sensitiveKey(f.Key) {
			return zap.String(f.Key, "[REDACTED]")
		}
	}
	return f
}

// RedactingEncoder masks exchange text and credentials before they reach
// the wrapped encoder, both in entry fields and in fields bound with With.
type RedactingEncoder struct {
	zapcore.Encoder
	r *redactor
}

// NewRedactingEncoder wraps base. A disabled config passes everything
// through; a bad pattern is an error.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	if !cfg.Enabled {
		return &RedactingEncoder{Encoder: base}, nil
	}
	r, err := newRedactor(cfg)
	if err != nil {
		return nil, err
	}
	return &RedactingEncoder{Encoder: base, r: r}, nil
}

func (e *RedactingEncoder) AddString(key, val string) {
	if e.r != nil {
		if s, ok := e.r.text(key, val); ok {
			val = s
		}
	}
	e.Encoder.AddString(key, val)
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.r != nil {
		if s, ok := e.r.text(key, string(val)); ok {
			e.Encoder.AddString(key, s)
			return
		}
	}
	e.Encoder.AddByteString(key, val)
}

func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if e.r != nil && e.r.sensitiveKey(key) {
		e.Encoder.AddString(key, "[REDACTED]")
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.r != nil && e.r.sensitiveKey(key) {
		e.Encoder.AddString(key, "[REDACTED]")
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{Encoder: e.Encoder.Clone(), r: e.r}
}

// EncodeEntry rewrites entry fields; zapcore hands them here rather than
// through the Add methods.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if e.r == nil {
		return e.Encoder.EncodeEntry(ent, fields)
	}
	return e.Encoder.EncodeEntry(ent, e.r.fields(fields))
}

func (r *redactor) fields(fs []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fs))
	for i, f := range fs {
		out[i] = r.field(f)
	}
	return out
}

// redactingCore applies the same rules to cores that encode fields
// themselves, such as the OTEL bridge.
type redactingCore struct {
	zapcore.Core
	r *redactor
}

func newRedactingCore(core zapcore.Core, cfg RedactionConfig) (zapcore.Core, error) {
	if !cfg.Enabled {
		return core, nil
	}
	r, err := newRedactor(cfg)
	if err != nil {
		return nil, err
	}
	return &redactingCore{Core: core, r: r}, nil
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{Core: c.Core.With(c.r.fields(fields)), r: c.r}
}

func (c *redactingCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *redactingCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(e, c.r.fields(fields))
}
