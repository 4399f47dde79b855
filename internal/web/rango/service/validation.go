package service

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	errors "github.com/Laisky/errors/v2"

	"github.com/z-Shi/TangoWithDjango/internal/web/rango/model"
)

var regexpUsername = regexp.MustCompile(`^[\w.@+-]+$`)

// normalizeURL trims raw, prepends http:// when no scheme is given and
// checks the result is an absolute web URL no longer than maxLen.
func normalizeURL(raw string, maxLen int) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url cannot be empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "parse url")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp", "ftps":
	default:
		return "", errors.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", errors.New("url must have a host")
	}
	if len(raw) > maxLen {
		return "", errors.Errorf("url must be at most %d characters", maxLen)
	}

	return raw, nil
}

func validateCategoryName(raw string) (name, slug string, err error) {
	name = strings.TrimSpace(raw)
	if name == "" {
		return "", "", errors.Wrap(ErrInvalidCategory, "name cannot be empty")
	}
	if utf8.RuneCountInString(name) > model.MaxCategoryNameLength {
		return "", "", errors.Wrapf(ErrInvalidCategory, "name must be at most %d characters", model.MaxCategoryNameLength)
	}

	slug = model.Slugify(name)
	if slug == "" {
		return "", "", errors.Wrap(ErrInvalidCategory, "name must contain letters or digits")
	}

	return name, slug, nil
}

func validatePage(rawTitle, rawURL string) (title, link string, err error) {
	title = strings.TrimSpace(rawTitle)
	if title == "" {
		return "", "", errors.Wrap(ErrInvalidPage, "title cannot be empty")
	}
	if utf8.RuneCountInString(title) > model.MaxPageTitleLength {
		return "", "", errors.Wrapf(ErrInvalidPage, "title must be at most %d characters", model.MaxPageTitleLength)
	}

	link, err = normalizeURL(rawURL, model.MaxPageURLLength)
	if err != nil {
		return "", "", errors.Wrap(ErrInvalidPage, err.Error())
	}

	return title, link, nil
}

func validateUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	if username == "" {
		return "", errors.Wrap(ErrInvalidProfile, "username cannot be empty")
	}
	if utf8.RuneCountInString(username) > model.MaxUsernameLength {
		return "", errors.Wrapf(ErrInvalidProfile, "username must be at most %d characters", model.MaxUsernameLength)
	}
	if !regexpUsername.MatchString(username) {
		return "", errors.Wrap(ErrInvalidProfile, "username may only contain letters, digits and @/./+/-/_")
	}
	return username, nil
}

func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.Wrapf(ErrInvalidProfile, "invalid email %q", email)
	}
	return email, nil
}

// validateWebsite accepts an empty website.
func validateWebsite(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	website, err := normalizeURL(raw, model.MaxWebsiteLength)
	if err != nil {
		return "", errors.Wrap(ErrInvalidProfile, err.Error())
	}
	return website, nil
}
