// Package api implements the REST surface of the bridge.
//
// # Endpoints
//
//   - POST /api/odoo/execute: REST mirror of the execute_odoo_method
//     tool. Bearer auth; returns {success, data?, error?}.
//   - POST /api/config: validate connectivity against Odoo, persist a
//     tenant plus API token, return the token. Nothing is persisted when
//     the connection test fails.
//   - POST /api/test-connection: connection test only, never persists.
//   - GET  /health: static liveness payload.
//
// # Semantics
//
// Execute shares the session resolver and argument translator with the
// MCP transport, so both surfaces accept the same request shape and fail
// the same way: 401 for missing/invalid tokens, 200 with success:false
// for validation and remote errors, 200 with success:true and data on
// success.
package api
