package blob

import "testing"

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/", ""},
		{"prefix", "prefix/"},
		{"prefix/", "prefix/"},
		{"/a/b/c", "a/b/c/"},
		{"a/b/c/", "a/b/c/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizePrefix(tt.input); got != tt.want {
				t.Errorf("NormalizePrefix(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
