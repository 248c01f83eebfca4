package security

import "time"

type PasswordReport struct {
	Algorithm   string
	BcryptCost  int
	Memory      uint32
	Time        uint32
	Parallelism uint8
	MinLength   int
	MaxLength   int
}

type Report struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	OTPCodeTTL            time.Duration
	OTPDigits             int
	Password              PasswordReport
	RefreshReuseDetection bool
	VerificationRequired  bool
	VerificationTokenTTL  time.Duration
	RateLimitingActive    bool
	AuditTrailActive      bool
	Warnings              []string
}

type ReportInput struct {
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	OTPCodeTTL            time.Duration
	OTPDigits             int
	Password              PasswordReport
	RefreshReuseDetection bool
	VerificationRequired  bool
	VerificationTokenTTL  time.Duration
	LimiterConfigured     bool
	MaxLoginAttempts      int
	LoginWindow           time.Duration
	AuditEnabled          bool
}

// recommended lower bounds for production deployments.
const (
	minBcryptCost   = 10
	minArgon2Memory = 19 * 1024
	maxAccessTTL    = time.Hour
)

func BuildReport(input ReportInput) Report {
	rateLimiting := input.LimiterConfigured &&
		input.MaxLoginAttempts > 0 &&
		input.LoginWindow > 0

	r := Report{
		SigningAlgorithm:      "HS256",
		AccessTTL:             input.AccessTTL,
		RefreshTTL:            input.RefreshTTL,
		OTPCodeTTL:            input.OTPCodeTTL,
		OTPDigits:             input.OTPDigits,
		Password:              input.Password,
		RefreshReuseDetection: input.RefreshReuseDetection,
		VerificationRequired:  input.VerificationRequired,
		VerificationTokenTTL:  input.VerificationTokenTTL,
		RateLimitingActive:    rateLimiting,
		AuditTrailActive:      input.AuditEnabled,
	}

	if !rateLimiting {
		r.Warnings = append(r.Warnings, "login rate limiting is inactive")
	}
	if !input.RefreshReuseDetection {
		r.Warnings = append(r.Warnings, "refresh token reuse detection is disabled")
	}
	if input.AccessTTL > maxAccessTTL {
		r.Warnings = append(r.Warnings, "access token lifetime exceeds one hour")
	}
	switch input.Password.Algorithm {
	case "bcrypt":
		if input.Password.BcryptCost < minBcryptCost {
			r.Warnings = append(r.Warnings, "bcrypt cost is below 10")
		}
	case "argon2id":
		if input.Password.Memory < minArgon2Memory {
			r.Warnings = append(r.Warnings, "argon2id memory is below 19 MiB")
		}
	}
	return r
}
