// File: protocol/version.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HTTP-version = "HTTP/1." DIGIT, terminated by CRLF or a bare LF.

package protocol

const versionPrefix = "HTTP/1."

// versionState walks the version token one byte at a time.
type versionState struct {
	i     int  // bytes of versionPrefix matched
	minor int  // -1 until the digit is seen
	cr    bool // CR seen, LF required next
}

func newVersionState() versionState { return versionState{minor: -1} }

// step feeds one byte. done is true once the line terminator was consumed.
func (v *versionState) step(c byte) (done bool, err error) {
	switch {
	case v.cr:
		if c == '\n' {
			return true, nil
		}
		return false, &ScanError{Reason: ReasonHTTPVersionNotSupported, Detail: "CR not followed by LF"}
	case v.i < len(versionPrefix):
		if c != versionPrefix[v.i] {
			return false, &ScanError{Reason: ReasonHTTPVersionNotSupported, Detail: "unknown protocol version"}
		}
		v.i++
		return false, nil
	case v.minor < 0:
		if c != '0' && c != '1' {
			return false, &ScanError{Reason: ReasonHTTPVersionNotSupported, Detail: "unsupported minor version"}
		}
		v.minor = int(c - '0')
		return false, nil
	case c == '\r':
		v.cr = true
		return false, nil
	case c == '\n':
		return true, nil
	default:
		return false, &ScanError{Reason: ReasonHTTPVersionNotSupported, Detail: "malformed version terminator"}
	}
}
