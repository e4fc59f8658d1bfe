package audit

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestSanitizeRedactsSensitiveKeys(t *testing.T) {
	in := map[string]interface{}{
		"api_key":  "bgt_secret",
		"password": "hunter2",
		"query":    "weather today",
	}
	out := Sanitize(in).(map[string]interface{})
	if out["api_key"] != Redacted || out["password"] != Redacted {
		t.Fatalf("sensitive keys not redacted: %+v", out)
	}
	if out["query"] != "weather today" {
		t.Fatalf("non-sensitive key mutated: %+v", out)
	}
}

func TestSanitizeTruncatesDeepNesting(t *testing.T) {
	var v interface{} = "leaf"
	for i := 0; i < maxDepth+3; i++ {
		v = map[string]interface{}{"nested": v}
	}
	out := Sanitize(v)
	depth := 0
	cur := out
	for {
		m, ok := cur.(map[string]interface{})
		if !ok {
			break
		}
		cur = m["nested"]
		depth++
	}
	if cur != truncatedMarker {
		t.Fatalf("deep nesting did not terminate in the truncation marker, got %v at depth %d", cur, depth)
	}
	if depth > maxDepth {
		t.Fatalf("sanitize descended past maxDepth: depth=%d", depth)
	}
}

func TestSanitizeTruncatesLongString(t *testing.T) {
	long := strings.Repeat("a", maxStringChars+100)
	out := Sanitize(long).(string)
	if len([]rune(out)) != maxStringChars {
		t.Fatalf("truncated string length = %d, want %d", len([]rune(out)), maxStringChars)
	}
	if !strings.HasSuffix(out, "...") {
		t.Fatalf("truncated string must end with the ellipsis marker, got %q", out)
	}
}

func TestSanitizeBoundsContainerSize(t *testing.T) {
	list := make([]interface{}, maxContainerSize+10)
	for i := range list {
		list[i] = i
	}
	out := Sanitize(list).([]interface{})
	if len(out) != maxContainerSize+1 {
		t.Fatalf("sanitized list length = %d, want %d (cap + marker)", len(out), maxContainerSize+1)
	}
	if out[maxContainerSize] != truncatedMarker {
		t.Fatalf("last element = %v, want truncation marker", out[maxContainerSize])
	}
}

func TestSanitizeBoundsMapSize(t *testing.T) {
	m := make(map[string]interface{}, maxContainerSize+10)
	for i := 0; i < maxContainerSize+10; i++ {
		m[string(rune('a'+i%26))+string(rune(i))] = i
	}
	out := Sanitize(m).(map[string]interface{})
	if _, ok := out["_truncated_items"]; !ok {
		t.Fatalf("expected a _truncated_items marker in an oversized map, got %+v", out)
	}
}

func TestSanitizeToJSONIsValidAndASCII(t *testing.T) {
	in := map[string]interface{}{"greeting": "héllo wörld"}
	encoded, err := SanitizeToJSON(in)
	if err != nil {
		t.Fatalf("SanitizeToJSON: %v", err)
	}
	for _, b := range encoded {
		if b > 0x7F {
			t.Fatalf("SanitizeToJSON output contains a non-ASCII byte: %q", encoded)
		}
	}
	var v interface{}
	if err := json.Unmarshal(encoded, &v); err != nil {
		t.Fatalf("SanitizeToJSON output is not valid JSON: %v", err)
	}
}

func TestSanitizeToJSONTruncatesOversizedField(t *testing.T) {
	// Each string survives sanitization at maxStringChars, so the list
	// serializes to well over maxFieldBytes.
	in := make([]interface{}, maxContainerSize)
	for i := range in {
		in[i] = strings.Repeat("x", maxStringChars)
	}
	encoded, err := SanitizeToJSON(in)
	if err != nil {
		t.Fatalf("SanitizeToJSON: %v", err)
	}
	var envelope map[string]interface{}
	if err := json.Unmarshal(encoded, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope["truncated"] != true {
		t.Fatalf("expected a truncated envelope, got %+v", envelope)
	}
}

func TestSanitizeHandlesNaNAndInf(t *testing.T) {
	out := Sanitize(math.NaN())
	if _, ok := out.(string); !ok {
		t.Fatalf("NaN must sanitize to a string, got %T", out)
	}
}
