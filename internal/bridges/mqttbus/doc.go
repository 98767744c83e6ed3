// Package mqttbus bridges MQTT and the in-process event bus.
//
// Inbound, participant lifecycle announcements update the directory and
// are republished on the bus, pushed control values become ControlAction
// events, and text commands are run through the command processor.
// Outbound, logging enabled/disabled notifications go to each participant's
// logging topic and every session change refreshes the retained status on
// thermlog/logging/status.
//
// Lifecycle payload:
//
//	{"event":"create","name":"CPU0","domains":[
//	    {"index":0,"capability_mask":"0x180","binding":"coretemp_package_id_0"}]}
//
// Participant 0 is the host itself: suspend and resume on it are passed to
// the bus without touching the directory.
package mqttbus
