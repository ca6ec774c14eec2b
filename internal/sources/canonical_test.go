package sources

import "testing"

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host and drops fragment", "HTTPS://News.Example.com/world#top", "https://news.example.com/world"},
		{"removes default port and tracking params", "http://news.example.com:80/a?id=7&utm_source=rss&at_medium=RSS", "http://news.example.com/a?id=7"},
		{"keeps custom port", "http://localhost:8080/a", "http://localhost:8080/a"},
		{"sorts query and keeps trailing slash", "https://example.com/path/?b=2&a=1", "https://example.com/path/?a=1&b=2"},
		{"cleans path", "https://example.com//a/../b///c", "https://example.com/b/c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalURL(tt.in)
			if err != nil {
				t.Fatalf("CanonicalURL: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalURLRejectsRelative(t *testing.T) {
	for _, in := range []string{"", "/news/1", "example.com/a", "ftp://example.com/a"} {
		if _, err := CanonicalURL(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}
