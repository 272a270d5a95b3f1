// Package cache provides a small generic key-value cache with expiry.
//
// Memory keeps entries in process and sweeps expired ones in the
// background; Redis stores JSON-encoded values through a go-redis client.
// Both satisfy Cache, which is what the session stores are built on.
package cache
