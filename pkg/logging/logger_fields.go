package logging

import (
	"time"
)

// String creates a string field.
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Int creates an int field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Float64 creates a float field.
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

// Bool creates a bool field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Duration logs d in its String form ("1.5s").
func Duration(key string, d time.Duration) Field { return Field{Key: key, Value: d.String()} }

// Any logs value through zap's reflection encoder.
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Error logs err under "error". A nil error logs null.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Keys shared by every package, so log queries can rely on them.
const (
	KeyComponent   = "component"
	KeyOperation   = "operation"
	KeyWindow      = "window"
	KeyFingerprint = "fingerprint"
	KeyLatency     = "latency"
	KeyCount       = "count"
)

// fingerprintLen is enough to tell snapshots apart in logs.
const fingerprintLen = 12

func Component(name string) Field { return String(KeyComponent, name) }

func Operation(op string) Field { return String(KeyOperation, op) }

func Window(w string) Field { return String(KeyWindow, w) }

// Fingerprint logs the leading characters of a snapshot fingerprint.
func Fingerprint(fp string) Field {
	if len(fp) > fingerprintLen {
		fp = fp[:fingerprintLen]
	}
	return String(KeyFingerprint, fp)
}

func Latency(d time.Duration) Field { return Duration(KeyLatency, d) }

func Count(n int) Field { return Int(KeyCount, n) }
