// Package sink fans formatted log lines out to the active output routes.
//
// Routes are bits of a RouteSet:
//
//	eventlog  0x01  system event log (syslog on Unix)
//	debugger  0x02  the daemon's structured logger at debug level
//	file      0x04  append-only CSV file
//	console   0x08  standard output
//	stream    0x10  WebSocket subscribers of the API hub
//
// A write failure on one route does not affect the others and is not
// retried within the same call. The Sink logs the first failure of a streak
// and the recovery, so a broken route produces two log lines rather than one
// per tick.
package sink
