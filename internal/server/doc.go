// Package server hosts the realtime WebSocket endpoint and the HTTP
// monitoring/query API on one listener. Each accepted WebSocket connection
// is wired into a supervised session; the HTTP surface exposes health,
// session, meeting-notes, one-shot query, and Prometheus metrics endpoints.
package server
