package utils

import (
	"net/url"
	"strconv"
	"strings"
)

// QueryInt parses an integer query parameter, falling back to def when
// it is missing or malformed.
func QueryInt(q url.Values, key string, def int) int {
	v := q.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// QueryBool returns nil when key is absent or not a boolean.
func QueryBool(q url.Values, key string) *bool {
	b, err := strconv.ParseBool(strings.TrimSpace(q.Get(key)))
	if err != nil {
		return nil
	}
	return &b
}

func QueryString(q url.Values, key string) string {
	return strings.TrimSpace(q.Get(key))
}
