package helpers

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"repo-index/model"
)

var (
	// GitHub logins: alphanumerics and single hyphens, no leading hyphen, at most 39 chars
	loginRegex = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9]|-[A-Za-z0-9]){0,38}$`)
	// /owner or /owner/ - profile URL
	profileRegex = regexp.MustCompile(`^/([^/]+)/?$`)
)

// ParseAccount accepts a bare login ("octocat") or a profile URL
// ("https://github.com/octocat") and returns the account it names.
func ParseAccount(s string) (model.Account, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Account{}, fmt.Errorf("empty account")
	}

	login := strings.TrimPrefix(s, "@")
	if strings.Contains(s, "/") {
		parsed, err := parseProfileURL(s)
		if err != nil {
			return model.Account{}, err
		}
		login = parsed
	}

	if len(login) > 39 || !loginRegex.MatchString(login) {
		return model.Account{}, fmt.Errorf("invalid account name: %s", s)
	}

	return model.Account{
		Login:      login,
		ProfileURL: "https://github.com/" + login,
	}, nil
}

func parseProfileURL(urlStr string) (string, error) {
	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %s", urlStr)
	}

	host := strings.ToLower(parsedURL.Host)
	if host != "github.com" && host != "www.github.com" {
		return "", fmt.Errorf("unsupported host: %s\nSupported: github.com", host)
	}

	match := profileRegex.FindStringSubmatch(parsedURL.Path)
	if len(match) != 2 {
		return "", fmt.Errorf(
			"invalid profile URL format: %s\nExpected: https://github.com/owner",
			urlStr,
		)
	}

	return match[1], nil
}
