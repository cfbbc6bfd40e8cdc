package resource

import (
	"strconv"
	"strings"
)

// EscapeText converts b into a form that can be placed between the double
// quotes of a C string literal. Printable ASCII passes through unchanged;
// every other byte, as well as backslash and double quote, is written as a
// three digit octal escape (\ooo). The result is not quoted.
func EscapeText(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))

	for _, c := range b {
		if c < 32 || c > 126 || c == '\\' || c == '"' {
			sb.WriteByte('\\')
			sb.WriteByte('0' + (c >> 6))
			sb.WriteByte('0' + ((c >> 3) & 7))
			sb.WriteByte('0' + (c & 7))
			continue
		}
		sb.WriteByte(c)
	}

	return sb.String()
}

// EscapeString is EscapeText over the UTF-8 encoding of s.
func EscapeString(s string) string {
	return EscapeText([]byte(s))
}

// EscapeBytes renders b as a brace-delimited array initializer of hex byte
// values, each followed by a comma: {0x41,0xff,}.
func EscapeBytes(b []byte) string {
	var sb strings.Builder
	sb.Grow(2 + len(b)*5)

	sb.WriteByte('{')
	for _, c := range b {
		sb.WriteString("0x")
		sb.WriteString(strconv.FormatUint(uint64(c), 16))
		sb.WriteByte(',')
	}
	sb.WriteByte('}')

	return sb.String()
}
