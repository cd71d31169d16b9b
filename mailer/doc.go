// Package mailer sends the transactional emails of the auth flows: account
// verification, the post-verification welcome, and password reset. Delivery
// goes through SMTP or SendGrid; a log-only sender exists for development.
package mailer
