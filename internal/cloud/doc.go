// Package cloud talks to the TP-Link Kasa cloud account API.
//
// The cloud API is a JSON-RPC-over-HTTPS endpoint: every call is a POST
// with a "method" field and a "params" object, and every response
// carries an integer "error_code" (zero on success) plus a "result"
// object. A login call exchanges account credentials for a bearer token
// which later calls pass as a query parameter.
//
// The client is read-only by design: it lists the devices bound to an
// account (useful for finding devices that are registered but not on
// the local network) and never sends control commands through the
// cloud. Local UDP/TCP remains the only control path.
package cloud
