// File: api/registration.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Interest set a connection asks the multiplexer to watch next.

package api

// RegistrationState is the interest set of one registration.
// The zero value means the connection must be dropped.
type RegistrationState uint8

const (
	Readable RegistrationState = 1 << iota
	Writable

	ReadWrite = Readable | Writable
)

// Empty reports whether no interest is left, i.e. the connection should close.
func (s RegistrationState) Empty() bool { return s&ReadWrite == 0 }

// Readable reports read interest.
func (s RegistrationState) Readable() bool { return s&Readable != 0 }

// Writable reports write interest.
func (s RegistrationState) Writable() bool { return s&Writable != 0 }

func (s RegistrationState) String() string {
	switch s & ReadWrite {
	case Readable:
		return "readable"
	case Writable:
		return "writable"
	case ReadWrite:
		return "readable|writable"
	default:
		return "none"
	}
}
