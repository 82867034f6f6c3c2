package mail

import (
	"fmt"
	"html"
)

// VerifyEmail builds the email-verification message for url.
func VerifyEmail(to, url string) Message {
	return Message{
		To:      to,
		Subject: "Verify Email Address",
		Text:    fmt.Sprintf("Click on the link to verify your email address: %s", url),
		HTML: fmt.Sprintf(
			`<p>Thanks for signing up. Click the link below to verify your email address.</p>`+
				`<p><a href="%[1]s">Verify Email</a></p>`+
				`<p>If you did not create an account, you can ignore this email.</p>`,
			html.EscapeString(url),
		),
	}
}

// PasswordReset builds the password reset message for url.
func PasswordReset(to, url string) Message {
	return Message{
		To:      to,
		Subject: "Password Reset Request",
		Text:    fmt.Sprintf("You requested a password reset. Click on the link to reset your password: %s", url),
		HTML: fmt.Sprintf(
			`<p>You requested a password reset. The link is valid for one hour.</p>`+
				`<p><a href="%[1]s">Reset Password</a></p>`+
				`<p>If you did not request it, you can ignore this email.</p>`,
			html.EscapeString(url),
		),
	}
}
