package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeySource     = "source"
	KeyTarget     = "target"
	KeyPage       = "page"
	KeyLayout     = "layout"
	KeyOp         = "op"
	KeyKind       = "kind"
	KeyEvent      = "event"
	KeyAddr       = "addr"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyClients    = "clients"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Source(p string) slog.Attr       { return slog.String(KeySource, p) }
func Target(p string) slog.Attr       { return slog.String(KeyTarget, p) }
func Page(p string) slog.Attr         { return slog.String(KeyPage, p) }
func Layout(l string) slog.Attr       { return slog.String(KeyLayout, l) }
func Op(op string) slog.Attr          { return slog.String(KeyOp, op) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Event(e string) slog.Attr        { return slog.String(KeyEvent, e) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Clients(n int) slog.Attr         { return slog.Int(KeyClients, n) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }

// Duration renders d as fractional milliseconds under the duration_ms key.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d.Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
