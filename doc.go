// Package authcore implements the account and session lifecycle of a
// cookie-based web backend: registration with emailed verification codes,
// login, sliding-window session refresh, logout, self-invalidating password
// reset, and per-account session management.
//
// The Engine is the single entry point. It is transport-agnostic: it speaks
// sentinel errors and plain results, and the httpapi package translates
// those into cookies, status codes, and response envelopes.
//
// Storage is Redis throughout. Accounts live behind the UserProvider
// interface so any backing store can be plugged in; the userstore package
// ships a Redis implementation.
package authcore
