package mail

import (
	"net/url"
	"time"
)

// Template names shipped with the package.
const (
	TemplateConfirmEmail = "confirm_email.html"
	TemplateOTPCode      = "otp_code.html"
)

// Message is what callers hand to the queue. Data is the template context.
type Message struct {
	From     string
	To       string
	Subject  string
	Template string
	Data     any
}

// ConfirmEmailData is the context of TemplateConfirmEmail.
type ConfirmEmailData struct {
	ConfirmationLink string
}

// OTPCodeData is the context of TemplateOTPCode.
type OTPCodeData struct {
	Code             string
	ExpiresInMinutes int
}

// ConfirmationLink builds baseURL+path?user_id=...&token=....
func ConfirmationLink(baseURL, path, userID, token string) string {
	return baseURL + path + "?user_id=" + url.QueryEscape(userID) + "&token=" + url.QueryEscape(token)
}

// NewConfirmEmail builds the email-ownership confirmation message.
func NewConfirmEmail(from, to, link string) Message {
	return Message{
		From:     from,
		To:       to,
		Subject:  "Confirm your email address",
		Template: TemplateConfirmEmail,
		Data:     ConfirmEmailData{ConfirmationLink: link},
	}
}

// NewOTPCode builds the second-factor code message.
func NewOTPCode(from, to, code string, ttl time.Duration) Message {
	minutes := int(ttl / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return Message{
		From:     from,
		To:       to,
		Subject:  "Authentication OTP Code",
		Template: TemplateOTPCode,
		Data:     OTPCodeData{Code: code, ExpiresInMinutes: minutes},
	}
}
