package authcore

import "github.com/MrEthical07/authcore/internal/security"

// SecurityReport is a read-only snapshot of the engine's security posture,
// returned by [Engine.SecurityReport].
type SecurityReport = security.Report

// SecurityReport summarizes the active token lifetimes, hashing parameters
// and protections, with warnings for settings below recommended strength.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	c := e.config
	return security.BuildReport(security.ReportInput{
		AccessTTL:  c.JWT.AccessTTL,
		RefreshTTL: c.Session.RefreshTTL,
		OTPCodeTTL: c.OTP.CodeTTL,
		OTPDigits:  c.OTP.Digits,
		Password: security.PasswordReport{
			Algorithm:   c.Password.Algorithm,
			BcryptCost:  c.Password.BcryptCost,
			Memory:      c.Password.Argon2Memory,
			Time:        c.Password.Argon2Time,
			Parallelism: c.Password.Argon2Parallelism,
			MinLength:   c.Password.MinLength,
			MaxLength:   c.Password.MaxLength,
		},
		RefreshReuseDetection: c.Session.ReuseDetection,
		VerificationRequired:  c.EmailVerification.RequireForLogin,
		VerificationTokenTTL:  c.EmailVerification.TokenTTL,
		LimiterConfigured:     e.limiter != nil,
		MaxLoginAttempts:      c.RateLimit.MaxLoginAttempts,
		LoginWindow:           c.RateLimit.LoginWindow,
		AuditEnabled:          e.audit != nil,
	})
}
