// Package session stores server-side login sessions in Redis.
//
// Records are serialized with a compact versioned binary encoding and keyed
// by a random uuid. A secondary set per account indexes its session ids for
// listing and bulk revocation. Expiry is enforced twice: Redis key TTLs
// reclaim storage, and readers check the encoded expiry so a session never
// outlives its window.
package session
