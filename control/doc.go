// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection for hioload-tls.
//
// Counters are plain atomics so that worker threads can bump them on the hot
// path without sharing a lock; registration of new names takes a lock once.
// Probes are evaluated lazily when a snapshot is requested.
package control
