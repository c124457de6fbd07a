package util

import "testing"

func TestCleanKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{name: "plain", key: "catalog/feed.json", want: "catalog/feed.json"},
		{name: "leading slash", key: "/catalog/feed.json", want: "catalog/feed.json"},
		{name: "backslashes", key: `catalog\feed.json`, want: "catalog/feed.json"},
		{name: "double slash", key: "catalog//feed.json", want: "catalog/feed.json"},
		{name: "traversal", key: "../etc/passwd", wantErr: true},
		{name: "empty", key: "  ", wantErr: true},
		{name: "root", key: "/", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CleanKey(tt.key)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("CleanKey(%q) expected error, got %q", tt.key, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CleanKey(%q) unexpected error: %v", tt.key, err)
			}
			if got != tt.want {
				t.Fatalf("CleanKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
