package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gwi.com/aiclone/internal/common"
)

const (
	maxEmailLength  = 254
	maxLocalLength  = 64
	mxLookupTimeout = 5 * time.Second
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var gmailDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
}

// MXResolver is satisfied by *net.Resolver.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Validator checks registration addresses.
type Validator struct {
	RequireGmail bool
	CheckMX      bool
	Resolver     MXResolver
	Logger       logrus.FieldLogger
}

func NewValidator(requireGmail, checkMX bool, logger logrus.FieldLogger) *Validator {
	return &Validator{
		RequireGmail: requireGmail,
		CheckMX:      checkMX,
		Resolver:     net.DefaultResolver,
		Logger:       logger,
	}
}

// Validate returns the normalized (trimmed, lowercased) address or a validation error.
func (v *Validator) Validate(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := validateFormat(email); err != nil {
		return "", err
	}
	email = strings.ToLower(email)
	domain := email[strings.LastIndex(email, "@")+1:]

	if v.RequireGmail && !gmailDomains[domain] {
		return "", common.Validation(fmt.Sprintf("Only Gmail accounts are allowed (received: %s)", domain))
	}
	if v.CheckMX {
		if err := v.checkDomain(ctx, domain); err != nil {
			return "", err
		}
	}
	return email, nil
}

func validateFormat(email string) error {
	if email == "" {
		return common.Validation("Email is required")
	}
	if !emailPattern.MatchString(email) {
		return common.Validation("Invalid email format")
	}
	if len(email) > maxEmailLength {
		return common.Validation("Email is too long (max 254 characters)")
	}
	if local := email[:strings.Index(email, "@")]; len(local) > maxLocalLength {
		return common.Validation("Email local part is too long (max 64 characters)")
	}
	return nil
}

// checkDomain rejects domains that do not exist, have no mail servers or
// time out. Any other resolver failure lets the address through.
func (v *Validator) checkDomain(ctx context.Context, domain string) error {
	ctx, cancel := context.WithTimeout(ctx, mxLookupTimeout)
	defer cancel()

	records, err := v.Resolver.LookupMX(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		switch {
		case errors.As(err, &dnsErr) && dnsErr.IsNotFound:
			return common.Validation(fmt.Sprintf("Domain '%s' does not exist", domain))
		case errors.As(err, &dnsErr) && dnsErr.IsTimeout, errors.Is(err, context.DeadlineExceeded):
			return common.Validation(fmt.Sprintf("Domain '%s' lookup timed out", domain))
		}
		if v.Logger != nil {
			v.Logger.WithError(err).WithField("domain", domain).Warn("MX lookup failed, allowing address")
		}
		return nil
	}
	if len(records) == 0 {
		return common.Validation(fmt.Sprintf("Domain '%s' has no mail servers", domain))
	}
	return nil
}
