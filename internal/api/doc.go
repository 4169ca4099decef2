// Package api provides the read-only diagnostics HTTP API and WebSocket
// server for the bridge.
//
// It exposes the announced-entity registry, observation history, and system
// metrics over a local HTTP listener, and streams live announcement and
// observation events to WebSocket clients. There is no authentication; the
// server is intended to bind to localhost.
//
// The server follows the same lifecycle pattern as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
