// Package mcp implements the Model Context Protocol endpoint of the bridge.
//
// # Protocol
//
// The server speaks JSON-RPC 2.0 over HTTP POST at /mcp (with and without
// a trailing slash). Supported methods:
//
//   - initialize: handshake returning protocol/capability metadata
//   - tools/list: the declared tool set with JSON Schema inputs
//   - tools/call: execute a tool against the caller's Odoo instance
//
// GET /mcp returns the same capability metadata statically so clients can
// probe the endpoint.
//
// # Authentication
//
// Only tools/call requires auth:
//
//	Authorization: Bearer <token>
//
// The token is resolved through the session package to the tenant's Odoo
// client before the tool runs. Missing or invalid tokens are rejected
// before any remote work happens.
//
// # Errors
//
// Standard JSON-RPC codes are used: -32700 parse, -32600 invalid
// request/authorization, -32601 unknown method or tool, -32602 invalid
// params (including argument validation failures), -32603 internal.
// Remote Odoo errors are relayed inside the tool result with isError set
// rather than as protocol errors.
package mcp
