// Package api exposes the coalescing worker over HTTP. It translates requests
// into Trigger, AwaitIdle and Stats calls and maps worker errors to status
// codes without leaking internal details.
package api
