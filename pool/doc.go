// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory layer for hioload-tls.
// RegionPool hands out fixed-size memory regions; VectoredBuffer arranges a
// small fixed number of them into a per-connection ring addressed by
// (buffer index, offset) pairs. Allocation observers account for and may veto
// every region a ring takes.
package pool
