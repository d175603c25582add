// Package discovery finds and talks to Kasa devices on the local
// network.
//
// # Discovery Process
//
// A discovery round works as follows:
//  1. Opens a UDP socket and sends probe datagrams to the subnet
//     broadcast address on both well-known Kasa ports (9999 and 20002)
//  2. Collects every reply that arrives within the timeout window
//  3. Decodes each reply (legacy XOR encoding first, then the
//     structured form), silently dropping payloads that match neither
//  4. Merges replies by source address, last decoded reply wins when
//     the same host answers more than once in a round
//
// An empty result set is a valid outcome, not an error. Only the
// failure to open a socket at all is fatal.
//
// # Sessions
//
// Replies are paired with a Session, a per-device handle that refreshes
// status, switches power, and reads energy telemetry over the framed
// TCP control channel. Operations on one Session are serialized;
// operations on different Sessions may run concurrently. Every
// operation dials, uses, and closes its own connection, so no round
// leaks sockets.
//
// # Resolution
//
// Resolver turns a user-supplied identifier (IP literal or partial
// name) into exactly one live Session. Matching more than one device is
// reported as an AmbiguousError rather than silently picking one, so a
// command never lands on the wrong physical device.
package discovery
