// Package server exposes the HTTP API and the realtime websocket
// endpoint, and owns request routing, authentication middleware and
// connection admission control.
package server
