// Package protocol
// Author: momentics <momentics@gmail.com>
//
// HTTP/1.x request-head scanning and response-head serialisation for
// hioload-tls. The scanner is zero-copy: it reports spans into the
// connection's plaintext VectoredBuffer and can resume at any byte boundary.
package protocol
