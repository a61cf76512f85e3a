package rubric

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Rubric is the examiner judgement. Scores are nil when the examiner left
// them out or sent something that is not a number.
type Rubric struct {
	Fluency          *float64       `json:"fluency,omitempty"`
	Cohesion         *float64       `json:"cohesion,omitempty"`
	Accuracy         *float64       `json:"accuracy,omitempty"`
	Range            *float64       `json:"range,omitempty"`
	Overall          *float64       `json:"overall,omitempty"`
	CommentsFluency  string         `json:"comments_fluency,omitempty"`
	CommentsCohesion string         `json:"comments_cohesion,omitempty"`
	CommentsAccuracy string         `json:"comments_accuracy,omitempty"`
	CommentsRange    string         `json:"comments_range,omitempty"`
	OverallComment   string         `json:"overall_comment,omitempty"`
	Raw              map[string]any `json:"-"`
}

// Outcome is either a parsed rubric or a malformed answer.
type Outcome struct {
	Rubric Rubric
	ok     bool
}

// OK reports whether a JSON object was recovered.
func (o Outcome) OK() bool { return o.ok }

// ParseResponse extracts the rubric from an examiner answer. The answer
// may be bare JSON, JSON inside a fenced block, or JSON surrounded by prose.
func ParseResponse(raw string) Outcome {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return Outcome{}
	}
	return Outcome{Rubric: fromMap(obj), ok: true}
}

// ExtractJSON returns the first JSON object recoverable from text: the whole
// text, then a fenced block, then the outermost braces.
func ExtractJSON(raw string) (map[string]any, bool) {
	if obj, ok := parseWhole(raw); ok {
		return obj, true
	}
	for _, candidate := range extractObject(raw) {
		if obj, ok := parseWhole(candidate); ok {
			return obj, true
		}
	}
	return nil, false
}

func parseWhole(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// extractObject returns candidate JSON snippets in the order they should be tried.
func extractObject(text string) []string {
	var out []string
	if inner, ok := fencedBlock(text); ok {
		out = append(out, inner)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		out = append(out, text[start:end+1])
	}
	return out
}

func fencedBlock(text string) (string, bool) {
	open := strings.Index(text, "```")
	if open == -1 {
		return "", false
	}
	rest := text[open+3:]
	// Skip the info string, e.g. ```json.
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		rest = rest[nl+1:]
	}
	closing := strings.Index(rest, "```")
	if closing == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:closing]), true
}

func fromMap(obj map[string]any) Rubric {
	return Rubric{
		Fluency:          number(obj["fluency"]),
		Cohesion:         number(obj["cohesion"]),
		Accuracy:         number(obj["accuracy"]),
		Range:            number(obj["range"]),
		Overall:          number(obj["overall"]),
		CommentsFluency:  text(obj["comments_fluency"]),
		CommentsCohesion: text(obj["comments_cohesion"]),
		CommentsAccuracy: text(obj["comments_accuracy"]),
		CommentsRange:    text(obj["comments_range"]),
		OverallComment:   text(obj["overall_comment"]),
		Raw:              obj,
	}
}

func number(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(n, ",", ".")), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

func text(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []any:
		parts := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				parts = append(parts, str)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}
