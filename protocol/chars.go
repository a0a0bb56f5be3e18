// File: protocol/chars.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import "golang.org/x/net/http/httpguts"

// isTchar reports whether c may appear in a method or field name token.
func isTchar(c byte) bool { return httpguts.IsTokenRune(rune(c)) }

// isTargetChar accepts any visible octet; percent-encoding is the handler's business.
func isTargetChar(c byte) bool { return c > ' ' && c != 0x7f }

// isFieldValueChar accepts field-vchar, obs-text and inner whitespace.
func isFieldValueChar(c byte) bool {
	return c == '\t' || c >= ' ' && c != 0x7f
}

func isWhitespace(c byte) bool { return c == ' ' || c == '\t' }
