package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// status values shared by every component.
var statuses = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"skip":         {},
	"retry":        {},
	"rate_limited": {},
}

// outcome values: handler summaries use ok/fail, the engine reports how a
// dispatch moved the session.
var outcomes = map[string]struct{}{
	"ok":       {},
	"fail":     {},
	"entered":  {},
	"advanced": {},
	"finished": {},
	"failed":   {},
	"reset":    {},
	"ignored":  {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeEnum(set map[string]struct{}, v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	_, ok := set[v]
	return v, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"cb_key",
	"kind",
	"flow",
	"step",
	"state",
	"next",
	"outcome",
	"model",
	"voice",
	"endpoint",
	"attempt",
	"duration_ms",
	"messages",
	"kb",
	"sessions",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"driver",
	"path",
	"err",
	"err_code",
	"err_kind",
	"cause",
	"backoff_ms",
}
