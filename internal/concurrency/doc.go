// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thread-level primitives for the worker pool: CPU pinning of locked OS
// threads, eventfd wake-ups for sleeping reactors and the cooperative
// process-wide termination flag.
package concurrency
