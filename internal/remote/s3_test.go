package remote

import "testing"

func TestObjectKey(t *testing.T) {
	tests := []struct {
		parent, name, want string
	}{
		{"", "arte", "arte"},
		{"groupgrab", "arte", "groupgrab/arte"},
		{"groupgrab/arte", "twitter", "groupgrab/arte/twitter"},
		{"/groupgrab", "arte", "groupgrab/arte"},
	}
	for _, tt := range tests {
		if got := objectKey(tt.parent, tt.name); got != tt.want {
			t.Errorf("objectKey(%q, %q) = %q, want %q", tt.parent, tt.name, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	if got := contentType("a.unknownext"); got != "application/octet-stream" {
		t.Errorf("contentType(unknown) = %q", got)
	}
	if got := contentType("a.png"); got != "image/png" {
		t.Errorf("contentType(png) = %q", got)
	}
}
