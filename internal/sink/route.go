package sink

import (
	"fmt"
	"strings"
)

// RouteSet is a bitmask of output routes.
type RouteSet uint32

// Route bits.
const (
	EventLog RouteSet = 1 << iota
	Debugger
	File
	Console
	Stream

	// AllRoutes selects every route.
	AllRoutes = EventLog | Debugger | File | Console | Stream
)

// routeOrder is the order routes are listed and written in.
var routeOrder = []struct {
	route RouteSet
	name  string
}{
	{EventLog, "eventviewer"},
	{Debugger, "debugger"},
	{Console, "console"},
	{File, "file"},
	{Stream, "stream"},
}

var routeAliases = map[string]RouteSet{
	"eventlog":    EventLog,
	"eventviewer": EventLog,
	"debugger":    Debugger,
	"file":        File,
	"console":     Console,
	"stream":      Stream,
}

// Has reports whether every bit of r is set in s.
func (s RouteSet) Has(r RouteSet) bool {
	return r != 0 && s&r == r
}

// Each calls fn for every set route, in listing order.
func (s RouteSet) Each(fn func(RouteSet)) {
	for _, ro := range routeOrder {
		if s&ro.route != 0 {
			fn(ro.route)
		}
	}
}

// Names lists the set routes.
func (s RouteSet) Names() []string {
	var names []string
	for _, ro := range routeOrder {
		if s&ro.route != 0 {
			names = append(names, ro.name)
		}
	}
	return names
}

func (s RouteSet) String() string {
	if s == 0 {
		return "none"
	}
	return strings.Join(s.Names(), " ")
}

// ParseRoute resolves a single route name. "all" selects every route.
func ParseRoute(name string) (RouteSet, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "all" {
		return AllRoutes, nil
	}
	if r, ok := routeAliases[name]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRoute, name)
}

// ParseRouteArgs parses the arguments of a route command:
//
//	all | {console|debugger|eventlog|eventviewer|file [name]|stream}...
//
// The argument after "file" is taken as the file name unless it is itself
// a route name.
func ParseRouteArgs(args []string) (routes RouteSet, fileName string, err error) {
	for i := 0; i < len(args); i++ {
		r, err := ParseRoute(args[i])
		if err != nil {
			return 0, "", err
		}
		routes |= r
		if r == File && i+1 < len(args) {
			if _, isRoute := routeAliases[strings.ToLower(args[i+1])]; !isRoute && !strings.EqualFold(args[i+1], "all") {
				fileName = args[i+1]
				i++
			}
		}
	}
	return routes, fileName, nil
}
