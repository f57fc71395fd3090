// Package api defines the wire types of the SearchFlow HTTP API.
//
// # API Overview
//
// SearchFlow exposes a small session-oriented API around the search agent:
//   - Sessions: create, inspect, delete, reset, per-session LLM credential
//   - Turns: synchronous JSON, Server-Sent Events, or WebSocket streaming
//   - Tools: the registered search tools
//   - Health, readiness, version and Prometheus metrics
//
// # Streaming
//
// Every streamed turn delivers agent events in production order and ends
// with exactly one "result" event carrying the TurnResponse.
//
// # Base URL
//
//	http://localhost:8080
package api
