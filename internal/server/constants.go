// Package server provides the dashboard HTTP and WebSocket API.
package server

import "time"

const (
	// StatusPushInterval is how often each WebSocket client receives a
	// fresh status snapshot.
	StatusPushInterval = 2 * time.Second

	// WSWriteTimeout bounds a single WebSocket write to a slow client.
	WSWriteTimeout = 5 * time.Second
)
