// Package sampler writes host resource samples to a CSV file.
//
// A Sampler polls a fixed list of named sources (cpu, memory, load,
// sensors) from a single re-arming timer. The column set is not static:
// it is the key set of each source on the first tick where at least one
// source succeeds. From then on the schema is locked. A source whose keys
// differ from its locked set, or which fails, writes empty fields for that
// tick instead of reshaping the file.
package sampler
