// Package inventory tracks the device population over time.
//
// It persists three artifacts under one data directory:
//
//   - baseline.json: a timestamped snapshot of the device list, written
//     atomically and read back unmodified until explicitly replaced by
//     a new baseline command
//   - devices.csv: the latest scan, overwritten each round
//   - scan_log.csv: the append-only history, one row per device per
//     round, never rewritten
//
// The Diff engine compares two generations of device records keyed by
// hardware address and reports added, removed, relocated (IP changed),
// and renamed devices. "No changes" is an explicit outcome,
// distinguishable from a diff that was never computed.
//
// The data directory is an explicit constructor argument; nothing in
// this package reads ambient process state.
package inventory
