package validation

import (
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/stripreader/internal/errors"
)

// Image URL rejection messages
const (
	MsgImageURLRequired    = "Image URL is required"
	MsgImageURLMalformed   = "Image URL is malformed"
	MsgImageURLScheme      = "Image URL scheme is not allowed"
	MsgImageURLNoHost      = "Image URL has no host"
	MsgImageURLCredentials = "Image URL must not carry credentials"
	MsgImageURLHostBlocked = "Image host is not allowed"
)

// URLPolicy says where strip photos may be fetched from
type URLPolicy struct {
	// Schemes defaults to http and https when empty
	Schemes []string
	// Hosts restricts fetching to the listed hosts. An entry "*.example.com"
	// admits every subdomain of example.com but not example.com itself.
	// Empty admits any host.
	Hosts []string
}

// DefaultURLPolicy admits any http or https host
func DefaultURLPolicy() URLPolicy {
	return URLPolicy{Schemes: []string{"http", "https"}}
}

// URLValidator checks image URLs against a URLPolicy before they are fetched
type URLValidator struct {
	schemes map[string]struct{}
	hosts   []string
}

// NewURLValidator normalises policy into a validator. Entries are trimmed and
// lowercased; blank entries are ignored.
func NewURLValidator(policy URLPolicy) *URLValidator {
	v := &URLValidator{schemes: make(map[string]struct{})}
	for _, s := range policy.Schemes {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			v.schemes[s] = struct{}{}
		}
	}
	if len(v.schemes) == 0 {
		for _, s := range DefaultURLPolicy().Schemes {
			v.schemes[s] = struct{}{}
		}
	}
	for _, h := range policy.Hosts {
		if h = normaliseHost(h); h != "" {
			v.hosts = append(v.hosts, h)
		}
	}
	return v
}

// ValidateImageURL returns a validation AppError when imageURL may not be
// fetched
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return apperrors.NewValidationError(MsgImageURLRequired, nil)
	}

	u, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError(MsgImageURLMalformed, err)
	}
	if _, ok := v.schemes[strings.ToLower(u.Scheme)]; !ok {
		return apperrors.NewValidationError(MsgImageURLScheme, nil).WithDetails(u.Scheme)
	}
	if u.User != nil {
		return apperrors.NewValidationError(MsgImageURLCredentials, nil)
	}
	host := normaliseHost(u.Hostname())
	if host == "" {
		return apperrors.NewValidationError(MsgImageURLNoHost, nil)
	}
	if !v.hostAllowed(host) {
		return apperrors.NewValidationError(MsgImageURLHostBlocked, nil).WithDetails(host)
	}
	return nil
}

func (v *URLValidator) hostAllowed(host string) bool {
	if len(v.hosts) == 0 {
		return true
	}
	for _, allowed := range v.hosts {
		if suffix, ok := strings.CutPrefix(allowed, "*"); ok {
			if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
				return true
			}
			continue
		}
		if host == allowed {
			return true
		}
	}
	return false
}

// normaliseHost lowercases h and drops a trailing root dot
func normaliseHost(h string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
}
