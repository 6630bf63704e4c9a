// Package form decodes URL-encoded form bodies into submissions.
package form

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrUndecodable is returned when a payload is not valid UTF-8 text.
var ErrUndecodable = errors.New("payload is not valid UTF-8")

// Submission maps a decoded field name to its value.
type Submission map[string]string

// Empty reports whether the submission carries no fields.
func (s Submission) Empty() bool {
	return len(s) == 0
}

// Decode parses an application/x-www-form-urlencoded payload.
//
// Items are split on '&' and then on the first '='. Keys and values are
// plus/percent decoded. A repeated key keeps its last non-empty value and
// pairs whose decoded value is empty are dropped.
func Decode(payload []byte) (Submission, error) {
	if !utf8.Valid(payload) {
		return nil, ErrUndecodable
	}

	sub := make(Submission)
	for _, item := range strings.Split(string(payload), "&") {
		rawKey, rawValue, _ := strings.Cut(item, "=")
		value := unescape(rawValue)
		if value == "" {
			continue
		}
		sub[unescape(rawKey)] = value
	}
	return sub, nil
}

// unescape decodes '+' as space and %XX escapes. Malformed escapes are
// kept verbatim rather than rejected, so one bad field does not lose the
// whole submission. Decoded bytes that are not valid UTF-8 become U+FFFD.
func unescape(s string) string {
	if !strings.ContainsAny(s, "+%") {
		return s
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			buf = append(buf, ' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			buf = append(buf, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
		default:
			buf = append(buf, c)
		}
	}
	return strings.ToValidUTF8(string(buf), "�")
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
