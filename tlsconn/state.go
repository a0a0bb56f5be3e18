// File: tlsconn/state.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tlsconn

// State is the connection phase derived after every step.
type State uint8

const (
	Handshaking State = iota
	ReadingApplicationData
	WritingApplicationData
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Handshaking:
		return "handshaking"
	case ReadingApplicationData:
		return "reading"
	case WritingApplicationData:
		return "writing"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
