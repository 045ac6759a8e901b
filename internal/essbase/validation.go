package essbase

import (
	"fmt"
	"net/url"
	"strings"

	apierrors "github.com/olgasafonova/essbase-mcp-server/internal/errors"
)

// RESTPath is the path of the Essbase REST API on a server
const RESTPath = "/essbase/rest/v1"

// MaxEntityNames caps how many names one member search may resolve
const MaxEntityNames = 100

// RESTBaseURL derives the REST API root from any URL on the Essbase
// server: scheme://host[:port]/essbase/rest/v1. Path, query and user info
// of the input are dropped.
func RESTBaseURL(raw string) (string, error) {
	if !strings.HasPrefix(raw, "http") {
		return "", apierrors.NewValidationError("url", raw, "must be an http or https URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", apierrors.NewValidationError("url", raw, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", apierrors.NewValidationError("url", raw, "must be an http or https URL")
	}
	if u.Hostname() == "" {
		return "", apierrors.NewValidationError("url", raw, "host is required")
	}

	host := u.Hostname()
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

// ValidateApplication checks the profile and the application name.
func ValidateApplication(a Application) error {
	if err := ValidateProfile(a.Profile()); err != nil {
		return err
	}
	return validateName("app", a.App)
}

// ValidateDatabase checks the profile, application and database names.
func ValidateDatabase(d Database) error {
	if err := ValidateApplication(d.Application()); err != nil {
		return err
	}
	return validateName("db", d.DB)
}

// ValidateEntityNames checks a member search batch.
func ValidateEntityNames(names []string) error {
	if len(names) == 0 {
		return apierrors.NewValidationError("entity_names", "", "at least one name is required")
	}
	if len(names) > MaxEntityNames {
		return apierrors.NewValidationError("entity_names", "", fmt.Sprintf("at most %d names per call, got %d", MaxEntityNames, len(names)))
	}
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return apierrors.NewValidationError(fmt.Sprintf("entity_names[%d]", i), "", "must not be empty")
		}
	}
	return nil
}

func validateName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apierrors.NewValidationError(field, "", "is required")
	}
	return nil
}
