// Package password is the credential hashing primitive: one-way argon2id
// hashing in PHC string format and constant-time verification.
package password
