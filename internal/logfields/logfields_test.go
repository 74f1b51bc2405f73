package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b-1", BuildID("b-1")},
		{"Stage", KeyStage, "render_pages", Stage("render_pages")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Source", KeySource, "a", Source("a")},
		{"Target", KeyTarget, "b", Target("b")},
		{"Page", KeyPage, "/about/", Page("/about/")},
		{"Layout", KeyLayout, "page", Layout("page")},
		{"Op", KeyOp, "copy", Op("copy")},
		{"Kind", KeyKind, "styles", Kind("styles")},
		{"Event", KeyEvent, "WRITE", Event("WRITE")},
		{"Addr", KeyAddr, ":3000", Addr(":3000")},
		{"Method", KeyMethod, "GET", Method("GET")},
		{"Status", KeyStatus, "404", Status(404)},
		{"Count", KeyCount, "3", Count(3)},
		{"Error", KeyError, "boom", Error(errors.New("boom"))},
		{"NilError", KeyError, "", Error(nil)},
		{"Duration", KeyDurationMS, "1.5", Duration(1500 * time.Microsecond)},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}
