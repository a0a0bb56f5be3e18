// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the typed wrapper over the OS readiness multiplexer
// (epoll on Linux): register, modify and unregister a descriptor's interest set
// under an opaque 64-bit token, wait for readiness and dispatch each ready token
// to a Reactor.
package reactor
