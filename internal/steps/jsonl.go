package steps

import (
	"bufio"
	"encoding/json"
	"regexp"
	"strings"
)

// Generation output is expected to be newline-delimited JSON objects,
// one candidate step per line, but it is untrusted text: lines may be
// fenced, pretty-printed, wrapped in an envelope object, or garbage.

var (
	fenceOpen  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
	jsonRegion = regexp.MustCompile(`(?s)(\[.*\]|\{.*\})`)
)

func stripCodeFences(text string) string {
	t := strings.TrimSpace(text)
	t = fenceOpen.ReplaceAllString(t, "")
	t = fenceClose.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// BestEffortJSON parses text as JSON, tolerating code fences and
// surrounding prose. It returns false when no JSON value can be found.
func BestEffortJSON(text string) (any, bool) {
	t := stripCodeFences(text)
	if t == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(t), &v); err == nil {
		return v, true
	}
	m := jsonRegion.FindString(t)
	if m == "" {
		return nil, false
	}
	if err := json.Unmarshal([]byte(m), &v); err != nil {
		return nil, false
	}
	return v, true
}

// candidatesFrom flattens a parsed JSON value into candidate objects.
// Arrays contribute each element; envelope objects contribute their step
// list; a bare object is itself one candidate.
func candidatesFrom(parsed any) []map[string]any {
	switch v := parsed.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, el := range v {
			if m, ok := el.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		for _, key := range []string{"miniSteps", "mini_steps", "steps", "items"} {
			if list, ok := v[key].([]any); ok {
				return candidatesFrom(list)
			}
		}
		return []map[string]any{v}
	default:
		return nil
	}
}

// DecodeCandidates scans raw provider output line by line and returns
// the candidate objects in emission order.
func DecodeCandidates(raw string) []map[string]any {
	var out []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		parsed, ok := BestEffortJSON(line)
		if !ok {
			continue
		}
		out = append(out, candidatesFrom(parsed)...)
	}
	return out
}

// DecodeWhole is the retry path for providers that ignore the
// line-delimited instruction: the entire raw output is parsed as a
// single JSON value.
func DecodeWhole(raw string) []map[string]any {
	parsed, ok := BestEffortJSON(raw)
	if !ok {
		return nil
	}
	return candidatesFrom(parsed)
}
