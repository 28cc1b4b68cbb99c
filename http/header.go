package http

import "strings"

type Header struct {
	Key   string // lower-cased
	Value string // trimmed
}

func parseHeader(line string) (Header, bool) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return Header{}, false
	}

	return Header{
		Key:   strings.ToLower(key),
		Value: strings.TrimSpace(value),
	}, true
}
