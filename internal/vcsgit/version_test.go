package vcsgit

import "testing"

func TestAtLeast(t *testing.T) {
	tests := []struct {
		version string
		major   int
		minor   int
		want    bool
	}{
		{"git version 2.39.2", 2, 5, true},
		{"git version 2.5.0", 2, 5, true},
		{"git version 2.4.9", 2, 5, false},
		{"git version 1.9.1", 2, 5, false},
		{"git version 2.39.2.windows.1", 2, 5, true},
	}
	for _, tt := range tests {
		got := AtLeast(tt.version, tt.major, tt.minor)
		if got != tt.want {
			t.Errorf("AtLeast(%q, %d, %d) = %v, want %v", tt.version, tt.major, tt.minor, got, tt.want)
		}
	}
}
