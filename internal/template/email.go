// Package template renders the outbound email bodies.
//
// Supported variables:
//
//	{{user.email}}, {{reset.url}}
package template

import "strings"

const passwordResetSubject = "Reset Password"

const passwordResetBody = `
<h2>Password Reset Link</h2>
<p>Reset your password by clicking on the link below:</p>
<a href="{{reset.url}}"><button>Reset Password</button></a>
<br />
<br />
<small><a style="color: #38A169" href="{{reset.url}}">{{reset.url}}</a></small>
<br />
<small>The link will expire in 15 mins!</small>
<small>If you haven't requested password reset, please ignore!</small>
<br /><br />
<p>Thanks,</p>
<p>Authentication API</p>`

const passwordResetConfirmationSubject = "Password Reset Successful"

const passwordResetConfirmationBody = `
<h2>Password Reset Successful</h2>
<p>You've successfully updated your password for your account &lt;{{user.email}}&gt;.</p>
<small>If you did not change your password, reset it from your account.</small>
<br /><br />
<p>Thanks,</p>
<p>Authentication API</p>`

// ResetURL builds the link embedded in the reset mail. The path shape
// mirrors the confirmation endpoint: /reset-password/{id}/{token}.
func ResetURL(clientURL, userID, token string) string {
	return strings.TrimRight(clientURL, "/") + "/reset-password/" + userID + "/" + token
}

// RenderPasswordReset returns the subject and HTML body of the reset
// request mail.
func RenderPasswordReset(email, resetURL string) (string, string) {
	return passwordResetSubject, render(passwordResetBody, email, resetURL)
}

// RenderPasswordResetConfirmation returns the subject and HTML body of
// the mail sent after a successful password change.
func RenderPasswordResetConfirmation(email string) (string, string) {
	return passwordResetConfirmationSubject, render(passwordResetConfirmationBody, email, "")
}

func render(body, email, resetURL string) string {
	pairs := []string{
		"{{user.email}}", email,
		"{{reset.url}}", resetURL,
	}
	return strings.NewReplacer(pairs...).Replace(body)
}
