// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/ManuGH/ytsum/internal/apperr"
)

func defaultValidator() *Validator {
	return New([]string{"youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be"})
}

func TestURL_Accepted(t *testing.T) {
	v := defaultValidator()

	tests := []struct {
		name   string
		url    string
		wantID string
	}{
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch bare host", "https://youtube.com/watch?v=abc_-123", "abc_-123"},
		{"mobile host", "https://m.youtube.com/watch?v=xyz", "xyz"},
		{"shorts", "https://www.youtube.com/shorts/s0rT1d", "s0rT1d"},
		{"embed", "https://www.youtube.com/embed/emb3d", "emb3d"},
		{"live", "https://www.youtube.com/live/l1ve", "l1ve"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"host case insensitive", "https://WWW.YOUTUBE.COM/watch?v=Case", "Case"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.URL(tt.url)
			if err != nil {
				t.Fatalf("URL(%q) unexpected error: %v", tt.url, err)
			}
			if id != tt.wantID {
				t.Errorf("URL(%q) id = %q, want %q", tt.url, id, tt.wantID)
			}
		})
	}
}

func TestURL_Rejected(t *testing.T) {
	v := defaultValidator()

	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"unparseable", "https://%zz"},
		{"http scheme", "http://www.youtube.com/watch?v=abc"},
		{"file scheme", "file:///etc/passwd"},
		{"foreign host", "https://example.com/watch?v=abc"},
		{"subdomain trick", "https://youtube.com.evil.net/watch?v=abc"},
		{"loopback literal", "https://127.0.0.1/watch?v=abc"},
		{"private 10/8", "https://10.0.0.5/watch?v=abc"},
		{"private 172.16/12", "https://172.20.1.1/watch?v=abc"},
		{"private 192.168/16", "https://192.168.1.1/watch?v=abc"},
		{"link local", "https://169.254.169.254/watch?v=abc"},
		{"no video id", "https://www.youtube.com/watch"},
		{"empty video id", "https://www.youtube.com/watch?v="},
		{"bad id characters", "https://www.youtube.com/watch?v=a%20b"},
		{"unknown path shape", "https://www.youtube.com/playlist?list=PL1"},
		{"shorts missing id", "https://www.youtube.com/shorts/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.URL(tt.url)
			if err == nil {
				t.Fatalf("URL(%q) expected rejection", tt.url)
			}
			var ae *apperr.Error
			if !errors.As(err, &ae) || ae.Code != apperr.CodeInvalidRequest {
				t.Errorf("URL(%q) error = %v, want INVALID_REQUEST", tt.url, err)
			}
		})
	}
}

func TestIsPrivateIPv4(t *testing.T) {
	private := []string{"0.1.2.3", "127.0.0.1", "127.255.255.255", "10.0.0.1", "172.16.0.1", "172.31.255.254", "192.168.0.1", "169.254.0.1"}
	for _, h := range private {
		if !isPrivateIPv4(h) {
			t.Errorf("isPrivateIPv4(%q) = false, want true", h)
		}
	}
	public := []string{"8.8.8.8", "172.32.0.1", "193.168.0.1", "youtube.com", "2001:db8::1"}
	for _, h := range public {
		if isPrivateIPv4(h) {
			t.Errorf("isPrivateIPv4(%q) = true, want false", h)
		}
	}
}

func TestTitle(t *testing.T) {
	v := defaultValidator()

	if err := v.Title(""); err != nil {
		t.Errorf("empty title should be allowed: %v", err)
	}
	if err := v.Title("A perfectly normal title"); err != nil {
		t.Errorf("plain title rejected: %v", err)
	}

	long := make([]byte, 121)
	for i := range long {
		long[i] = 'a'
	}
	if err := v.Title(string(long)); err == nil {
		t.Error("title over 120 characters should be rejected")
	}
	if err := v.Title("hello <script>alert(1)</script>"); err == nil {
		t.Error("markup in title should be rejected")
	}

	// The limit counts characters, not bytes: 60 Cyrillic letters occupy 120
	// bytes but are well within 120 characters.
	cyrillic := strings.Repeat("п", 60)
	if err := v.Title(cyrillic); err != nil {
		t.Errorf("60-character Cyrillic title rejected: %v", err)
	}
	if err := v.Title(strings.Repeat("п", 121)); err == nil {
		t.Error("121-character Cyrillic title should be rejected")
	}
}

func TestLang(t *testing.T) {
	v := defaultValidator()
	for _, ok := range []string{"", "auto", "en", "ru"} {
		if err := v.Lang(ok); err != nil {
			t.Errorf("Lang(%q) rejected: %v", ok, err)
		}
	}
	if err := v.Lang("de"); err == nil {
		t.Error("Lang(de) should be rejected")
	}
}
