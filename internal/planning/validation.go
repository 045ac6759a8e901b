package planning

import (
	"net/url"
	"strings"

	apierrors "github.com/olgasafonova/essbase-mcp-server/internal/errors"
)

// RESTPath is the path of the Planning REST API on an EPM server
const RESTPath = "/HyperionPlanning/rest/v3"

// RESTBaseURL derives the Planning REST root from any URL on the EPM
// server: scheme://host[:port]/HyperionPlanning/rest/v3.
func RESTBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", apierrors.NewValidationError("url", raw, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", apierrors.NewValidationError("url", raw, "must be an http or https URL")
	}
	host := u.Hostname()
	if host == "" {
		return "", apierrors.NewValidationError("url", raw, "host is required")
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" {
		host += ":" + port
	}
	return u.Scheme + "://" + host + RESTPath, nil
}

// ValidateProfile checks that a profile has a usable URL and credentials.
func ValidateProfile(p Profile) error {
	if p.URL == "" {
		return apierrors.NewValidationError("url", "", "is required")
	}
	if _, err := RESTBaseURL(p.URL); err != nil {
		return err
	}
	if p.User == "" {
		return apierrors.NewValidationError("user", "", "is required")
	}
	if p.Password == "" {
		return apierrors.NewValidationError("pwd", "", "is required")
	}
	return nil
}
