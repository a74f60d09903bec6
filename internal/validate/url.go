// SPDX-License-Identifier: MIT

// Package validate checks client-supplied input before it reaches business
// logic: URL allowlisting, SSRF guards, title and option hygiene.
package validate

import (
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ManuGH/ytsum/internal/apperr"
)

var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validator enforces the input contract for summary requests.
type Validator struct {
	allowedHosts map[string]struct{}
}

// New builds a Validator from the configured host allowlist.
func New(allowedHosts []string) *Validator {
	hosts := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		hosts[strings.ToLower(h)] = struct{}{}
	}
	return &Validator{allowedHosts: hosts}
}

func invalid(msg string) *apperr.Error {
	return apperr.New(apperr.CodeInvalidRequest, "", msg)
}

// URL validates a video URL against scheme, host allowlist, private-address
// guards and the recognized YouTube path shapes. On success it returns the
// extracted video id.
func (v *Validator) URL(raw string) (videoID string, err error) {
	if strings.TrimSpace(raw) == "" {
		return "", invalid("url is required")
	}

	u, parseErr := url.Parse(raw)
	if parseErr != nil {
		return "", invalid("url is not parseable")
	}

	if u.Scheme != "https" {
		return "", invalid("url scheme must be https")
	}

	host := strings.ToLower(u.Hostname())
	if isPrivateIPv4(host) {
		return "", invalid("url host resolves to a private address")
	}
	if _, ok := v.allowedHosts[host]; !ok {
		return "", invalid("url host is not an allowed video host")
	}

	id := extractVideoID(host, u)
	if id == "" || !videoIDRe.MatchString(id) {
		return "", invalid("url does not carry a valid video id")
	}
	return id, nil
}

// isPrivateIPv4 reports whether host is a literal IPv4 address inside
// loopback, RFC1918, link-local or the zero network.
func isPrivateIPv4(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	switch {
	case v4[0] == 0:
		return true
	case v4[0] == 127:
		return true
	case v4[0] == 10:
		return true
	case v4[0] == 172 && v4[1] >= 16 && v4[1] <= 31:
		return true
	case v4[0] == 192 && v4[1] == 168:
		return true
	case v4[0] == 169 && v4[1] == 254:
		return true
	}
	return false
}

// extractVideoID pulls the video id out of the recognized URL shapes:
// watch?v=ID, /shorts/ID, /embed/ID, /live/ID and the youtu.be short link.
func extractVideoID(host string, u *url.URL) string {
	if host == "youtu.be" {
		return strings.Trim(u.Path, "/")
	}

	path := strings.Trim(u.Path, "/")
	switch {
	case path == "watch":
		return u.Query().Get("v")
	case strings.HasPrefix(path, "shorts/"):
		return strings.TrimPrefix(path, "shorts/")
	case strings.HasPrefix(path, "embed/"):
		return strings.TrimPrefix(path, "embed/")
	case strings.HasPrefix(path, "live/"):
		return strings.TrimPrefix(path, "live/")
	}
	return ""
}

// Title validates an optional client-supplied title: 1-120 characters with a
// crude rejection of anything that looks like markup.
func (v *Validator) Title(title string) error {
	if title == "" {
		return nil
	}
	if utf8.RuneCountInString(title) > 120 {
		return invalid("title exceeds 120 characters")
	}
	if strings.ContainsAny(title, "<>") {
		return invalid("title must not contain markup")
	}
	return nil
}

// Lang validates the language preference.
func (v *Validator) Lang(lang string) error {
	switch lang {
	case "", "auto", "en", "ru":
		return nil
	}
	return invalid("lang must be one of auto, en, ru")
}
