package mailer

import (
	"fmt"
	"html"
)

// VerifyEmail renders the account verification message. link is the full
// verification URL including the opaque code.
func VerifyEmail(link string) Message {
	escaped := html.EscapeString(link)
	return Message{
		Subject: "Verify your email address",
		HTML: fmt.Sprintf(
			`<p>Welcome! Please confirm your email address by clicking the link below.</p>`+
				`<p><a href="%s">Verify email</a></p>`+
				`<p>If you did not create an account, you can ignore this message.</p>`,
			escaped,
		),
		Text: fmt.Sprintf(
			"Welcome! Please confirm your email address by opening this link:\n\n%s\n\n"+
				"If you did not create an account, you can ignore this message.\n",
			link,
		),
	}
}

// Welcome renders the post-verification welcome message.
func Welcome(email string) Message {
	escaped := html.EscapeString(email)
	return Message{
		Subject: "Welcome aboard",
		HTML: fmt.Sprintf(
			`<p>Your email address %s has been verified. Your account is ready to use.</p>`,
			escaped,
		),
		Text: fmt.Sprintf("Your email address %s has been verified. Your account is ready to use.\n", email),
	}
}

// ResetPassword renders the password reset message. The link stops working
// after five minutes or as soon as the password changes, whichever is first.
func ResetPassword(link string) Message {
	escaped := html.EscapeString(link)
	return Message{
		Subject: "Reset your password",
		HTML: fmt.Sprintf(
			`<p>A password reset was requested for your account.</p>`+
				`<p><a href="%s">Reset password</a></p>`+
				`<p>The link expires in 5 minutes. If you did not request a reset, ignore this message.</p>`,
			escaped,
		),
		Text: fmt.Sprintf(
			"A password reset was requested for your account. Open this link to continue:\n\n%s\n\n"+
				"The link expires in 5 minutes. If you did not request a reset, ignore this message.\n",
			link,
		),
	}
}
