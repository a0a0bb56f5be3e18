// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw non-blocking TCP sockets for hioload-tls: a listening socket with
// Accept4 and connected sockets implementing api.Socket with plain read(2)
// and writev(2). Linux only; other platforms get stubs returning
// api.ErrNotSupported.
package transport
