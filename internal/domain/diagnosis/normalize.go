package diagnosis

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Fallback values used when the model output cannot be parsed into the
// strict schema. The upstream service gives no structured-output guarantee,
// so the degraded path must itself be fully deterministic.
const (
	FallbackAdvice     = "The response could not be interpreted automatically. Please consult a local agricultural extension officer for a reliable assessment."
	FallbackConfidence = 0.25
	fallbackExcerptLen = 200
)

// Normalize converts raw, untrusted model text into a Result. The second
// return value is true when the fallback path produced the result.
//
// The raw text is scanned for the first balanced top-level brace-delimited
// object; if that object parses and every field passes validation it is
// returned verbatim. Any parse or validation failure rejects the whole
// object and falls back; fields are never trusted partially.
func Normalize(raw string) (Result, bool) {
	if obj, ok := extractObject(raw); ok {
		var res Result
		if err := json.Unmarshal([]byte(obj), &res); err == nil && validate(res) {
			return res, false
		}
	}
	return fallback(raw), true
}

func validate(r Result) bool {
	if strings.TrimSpace(r.Diagnosis) == "" || strings.TrimSpace(r.Advice) == "" {
		return false
	}
	if !r.Severity.Valid() {
		return false
	}
	return r.Confidence >= 0 && r.Confidence <= 1
}

func fallback(raw string) Result {
	// Truncation counts runes, not bytes, so a multibyte character at the
	// boundary is never split into an invalid sequence.
	excerpt := raw
	if utf8.RuneCountInString(excerpt) > fallbackExcerptLen {
		runes := []rune(excerpt)
		excerpt = string(runes[:fallbackExcerptLen])
	}
	return Result{
		Diagnosis:  excerpt + "...",
		Advice:     FallbackAdvice,
		Severity:   SeverityMedium,
		Confidence: FallbackConfidence,
	}
}

// extractObject returns the substring from the first '{' to its matching
// top-level '}'. Braces inside JSON strings and escaped quotes are skipped,
// so nested objects and prose around the object do not confuse the scan.
func extractObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}
