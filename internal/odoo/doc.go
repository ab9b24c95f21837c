// Package odoo implements a JSON-RPC client for Odoo instances.
//
// # Protocol
//
// Odoo exposes a JSON-RPC endpoint at /jsonrpc with a two-phase call
// pattern. Clients first authenticate against the "common" service:
//
//	{
//	  "jsonrpc": "2.0",
//	  "method": "call",
//	  "params": {
//	    "service": "common",
//	    "method": "authenticate",
//	    "args": ["<db>", "<username>", "<password>", {}]
//	  },
//	  "id": 1
//	}
//
// A successful authentication returns a numeric uid, which is then embedded
// in every subsequent execute_kw call against the "object" service:
//
//	"args": ["<db>", <uid>, "<password>", "<model>", "<method>", <args>, <kwargs>]
//
// # Sessions
//
// The Client caches the uid for its lifetime and authenticates lazily on
// the first Execute call. If the remote side reports an access error the
// cached uid is dropped so the next call re-authenticates.
//
// # Error Handling
//
// Execute returns the raw JSON result or an error; it never panics. The
// SearchRead and ReadOne convenience methods deliberately collapse errors
// into empty results so callers formatting summaries can treat "nothing
// found" and "call failed" uniformly.
//
// # Argument Translation
//
// BuildArgs converts the generic CallRequest shape used by both the MCP
// and REST transports into the (args, kwargs) pair execute_kw expects,
// with per-method validation and type coercion.
package odoo
