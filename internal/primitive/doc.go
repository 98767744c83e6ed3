// Package primitive reads raw values from the host on behalf of the
// participant logging engine.
//
// A read names a participant, one of its domains (sub-devices) and a
// primitive. The participant directory maps each domain to a binding, the
// host object that backs it: a hwmon/thermal sensor key for temperature, a
// "cpu" or "cpuN" selector for utilisation, a powercap zone such as
// "intel-rapl:0" for power and a power_supply name such as "BAT0" for
// battery readings.
//
// Temperature sensors and CPU utilisation come from gopsutil. Power and
// battery values are read straight from sysfs because gopsutil exposes
// neither RAPL energy counters nor power_supply attributes.
package primitive
