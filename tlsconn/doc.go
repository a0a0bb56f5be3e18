// Package tlsconn
// Author: momentics <momentics@gmail.com>
//
// Per-connection TLS state machine. A Conn owns one TLS session, the
// plaintext ring the HTTP layer scans and the ciphertext ring the socket
// drains. Service drives exactly one step per readiness event and never
// blocks: every would-block returns control to the multiplexer together with
// the interest set needed to continue.
package tlsconn
