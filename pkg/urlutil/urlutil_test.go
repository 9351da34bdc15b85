package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "https", in: "https://example.com", want: true},
		{name: "http with path and query", in: "http://example.com/a/b?c=d#e", want: true},
		{name: "uppercase scheme", in: "HTTPS://example.com", want: true},
		{name: "with port", in: "http://localhost:8080/x", want: true},
		{name: "ipv6 host", in: "http://[::1]:80/", want: true},
		{name: "empty", in: "", want: false},
		{name: "no scheme", in: "example.com/path", want: false},
		{name: "ftp scheme", in: "ftp://example.com", want: false},
		{name: "javascript scheme", in: "javascript:alert(1)", want: false},
		{name: "mailto", in: "mailto:someone@example.com", want: false},
		{name: "missing host", in: "https:///path", want: false},
		{name: "scheme only", in: "https://", want: false},
		{name: "malformed host", in: "http://[::1", want: false},
		{name: "control character", in: "http://exa\x7fmple.com", want: false},
		{name: "relative", in: "/just/a/path", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "blank", in: "   ", want: ""},
		{name: "no scheme", in: "example.com/path", want: "https://example.com/path"},
		{name: "surrounding spaces", in: "  example.com  ", want: "https://example.com"},
		{name: "keeps http", in: "http://example.com", want: "http://example.com"},
		{name: "keeps https", in: "https://example.com/x", want: "https://example.com/x"},
		{name: "keeps foreign scheme", in: "ftp://example.com", want: "ftp://example.com"},
		{name: "port looks like scheme", in: "example.com:80/x", want: "example.com:80/x"},
		{name: "hostname with port is a scheme", in: "localhost:8080/x", want: "localhost:8080/x"},
		{name: "ipv4 with port and path", in: "192.168.1.1:8080/path", want: "https://192.168.1.1:8080/path"},
		{name: "ipv4 with port", in: "127.0.0.1:5000", want: "https://127.0.0.1:5000"},
		{name: "colon after path", in: "example.com/a:b", want: "https://example.com/a:b"},
		{name: "bad escape still prefixed", in: "example.com/%zz", want: "https://example.com/%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeThenValidate(t *testing.T) {
	assert.True(t, IsValid(Normalize("example.com/path")))
	assert.True(t, IsValid(Normalize("192.168.1.1:8080/path")))
	assert.True(t, IsValid(Normalize("127.0.0.1:5000")))
	assert.False(t, IsValid(Normalize("localhost:8080/x")))
	assert.False(t, IsValid(Normalize("example.com/%zz")))
	assert.False(t, IsValid(Normalize("ftp://example.com")))
	assert.False(t, IsValid(Normalize("")))
}
