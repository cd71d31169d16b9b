// Package httpapi exposes the auth engine over HTTP with cookie transport.
// Access tokens ride an accessToken cookie scoped to /; refresh tokens ride
// a refreshToken cookie scoped to /refresh only. All responses share the
// {success, message?, ...} envelope.
package httpapi
