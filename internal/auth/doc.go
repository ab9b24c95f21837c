// Package auth provides API token generation and bearer header parsing.
//
// Tokens are opaque 32-character alphanumeric strings drawn from
// crypto/rand. They carry no claims; validity is decided entirely by the
// store lookup in the session package. Both transports use
// ExtractBearerToken so malformed Authorization headers are rejected
// with the same messages everywhere.
package auth
