// Package jwt is the token codec for authcore. It signs and verifies the
// three stateless token kinds the engine issues: access tokens (short-lived,
// account + session), refresh tokens (long-lived, session only), and
// password-reset tokens (signed with a key derived from the account's
// current password hash, so a password change revokes them implicitly).
package jwt
