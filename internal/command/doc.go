// Package command parses the participant logging command language and
// runs it against an engine.
//
// Commands:
//
//	start    [all | {participant domain capability}...]
//	stop
//	route    [all | {console|debugger|eventlog|eventviewer|file [name]|stream}...]
//	interval <ms>
//	schedule [delay-ms] [all | {participant domain capability}...]
//	status
//	help
//
// Errors are reported as one line carrying the numeric error code.
package command
