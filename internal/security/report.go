package security

import (
	"fmt"
	"strings"
	"time"
)

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

// Report is the derived posture of a configuration.
type Report struct {
	SigningAlgorithm       string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	Argon2                 PasswordReport
	HashUpgradeOnLogin     bool
	LoginThrottleActive    bool
	IPThrottleActive       bool
	RegistrationThrottle   bool
	RefreshThrottleActive  bool
	AuditEnabled           bool
	RefreshReuseProtection bool
	Warnings               []string
}

type ReportInput struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	Password              PasswordReport
	UpgradeOnLogin        bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldown         time.Duration
	MaxRegistrationsPerIP int
	MaxRefreshAttempts    int
	AuditEnabled          bool
}

// BuildReport derives a Report from input. Warnings flag settings that are
// valid but weaker than the defaults.
func BuildReport(input ReportInput) Report {
	loginThrottle := input.MaxLoginAttempts > 0 && input.LoginCooldown > 0

	r := Report{
		SigningAlgorithm:       input.SigningAlgorithm,
		AccessTTL:              input.AccessTTL,
		RefreshTTL:             input.RefreshTTL,
		Argon2:                 input.Password,
		HashUpgradeOnLogin:     input.UpgradeOnLogin,
		LoginThrottleActive:    loginThrottle,
		IPThrottleActive:       loginThrottle && input.EnableIPThrottle,
		RegistrationThrottle:   input.MaxRegistrationsPerIP > 0,
		RefreshThrottleActive:  input.MaxRefreshAttempts > 0,
		AuditEnabled:           input.AuditEnabled,
		RefreshReuseProtection: true,
	}

	if !loginThrottle {
		r.Warnings = append(r.Warnings, "login throttling disabled")
	}
	if input.Password.Memory < 19*1024 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("argon2 memory %d KiB below 19 MiB", input.Password.Memory))
	}
	if input.AccessTTL > 15*time.Minute {
		r.Warnings = append(r.Warnings, fmt.Sprintf("access ttl %s exceeds 15m", input.AccessTTL))
	}
	return r
}

// String renders the report as one log line.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "signing=%s access_ttl=%s refresh_ttl=%s argon2=m%d,t%d,p%d",
		r.SigningAlgorithm, r.AccessTTL, r.RefreshTTL,
		r.Argon2.Memory, r.Argon2.Time, r.Argon2.Parallelism)
	fmt.Fprintf(&b, " login_throttle=%t ip_throttle=%t registration_throttle=%t refresh_throttle=%t audit=%t",
		r.LoginThrottleActive, r.IPThrottleActive, r.RegistrationThrottle, r.RefreshThrottleActive, r.AuditEnabled)
	if len(r.Warnings) > 0 {
		b.WriteString(" warnings=")
		b.WriteString(strings.Join(r.Warnings, "; "))
	}
	return b.String()
}
