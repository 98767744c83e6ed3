// Package api serves the thermlog REST API and the WebSocket log stream.
//
// All routes live under /api/v1. Everything except /health needs a bearer
// token issued by `thermlog --issue-token`; the WebSocket endpoint takes the
// token as ?token= because browsers cannot set headers on upgrade requests.
//
// Read endpoints need the logging:read permission, control endpoints need
// logging:operate or sampler:operate (see package auth). Control requests
// are recorded in the audit log, readable by admins at /api/v1/audit.
//
// WebSocket clients subscribe to channels:
//
//	{"type":"subscribe","id":"1","payload":{"channels":["participant.log"]}}
//
// participant.log carries every row and header written to the stream route;
// logging.status carries the session status after each change.
package api
