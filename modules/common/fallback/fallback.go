package fallback

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNoJSON is returned when model output contains no parsable JSON value of
// the requested shape.
var ErrNoJSON = errors.New("no JSON value found in model output")

// ExtractJSONArray returns the first well-formed JSON array embedded in text.
// Models often wrap JSON in prose or markdown fences.
func ExtractJSONArray(text string) (string, bool) {
	return extractJSON(text, '[', ']')
}

// ExtractJSONObject returns the first well-formed JSON object embedded in text.
func ExtractJSONObject(text string) (string, bool) {
	return extractJSON(text, '{', '}')
}

// DecodeJSONArray decodes the first JSON array in text that fits v. Candidates
// of another shape (e.g. "[1]" in prose) are skipped.
func DecodeJSONArray(text string, v interface{}) error {
	return decodeFirst(text, '[', ']', v)
}

// DecodeJSONObject decodes the first JSON object in text that fits v.
func DecodeJSONObject(text string, v interface{}) error {
	return decodeFirst(text, '{', '}', v)
}

func decodeFirst(text string, open, close byte, v interface{}) error {
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", v)
	}

	var firstErr error
	found := eachJSON(text, open, close, func(candidate string) bool {
		// 실패한 시도의 잔여 값 제거
		target.Elem().Set(reflect.Zero(target.Elem().Type()))
		err := json.Unmarshal([]byte(candidate), v)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return err == nil
	})
	if found {
		return nil
	}
	if firstErr != nil {
		return firstErr
	}
	return ErrNoJSON
}

func extractJSON(text string, open, close byte) (string, bool) {
	var out string
	ok := eachJSON(text, open, close, func(candidate string) bool {
		out = candidate
		return true
	})
	return out, ok
}

// eachJSON calls accept for every well-formed bracketed JSON value in text,
// left to right, until accept returns true.
func eachJSON(text string, open, close byte, accept func(candidate string) bool) bool {
	offset := 0
	for {
		idx := strings.IndexByte(text[offset:], open)
		if idx < 0 {
			return false
		}
		start := offset + idx

		if end := matchingClose(text, start, open, close); end > start {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) && accept(candidate) {
				return true
			}
		}
		offset = start + 1
	}
}

// matchingClose finds the index of the bracket closing text[start], skipping
// brackets inside JSON strings. Returns -1 when unbalanced.
func matchingClose(text string, start int, open, close byte) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// SafeString returns a trimmed string or the provided fallback.
func SafeString(value interface{}, fallback string) string {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return fallback
}

// SafeStringSlice keeps the non-empty trimmed strings of value, or returns
// fallback when none remain.
func SafeStringSlice(value []string, fallback []string) []string {
	out := make([]string, 0, len(value))
	for _, s := range value {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
