// Package tools defines the Odoo tools exposed over the MCP transport.
//
// The registry holds one generic tool, execute_odoo_method, which routes
// any (model, method) pair through the argument translator, plus a small
// set of convenience tools (partners, products, invoices) that return
// formatted text summaries.
//
// Every tool receives the per-request Odoo client resolved by the
// dispatch layer; tools hold no state of their own.
package tools
