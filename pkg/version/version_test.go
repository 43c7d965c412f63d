package version

import (
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		major uint16
		minor uint16
	}{
		{"1", 1, 0},
		{"1.0", 1, 0},
		{"1.1", 1, 1},
		{"2.0", 2, 0},
		{"10.23", 10, 23},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v.Major != tt.major {
				t.Errorf("Major = %d, want %d", v.Major, tt.major)
			}
			if v.Minor != tt.minor {
				t.Errorf("Minor = %d, want %d", v.Minor, tt.minor)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"abc",
		"1.",
		".1",
		"1.0.0",
		"1.x",
		"-1.0",
		"70000",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Errorf("Parse(%q) should return error", input)
			}
		})
	}
}

func TestVersion_String(t *testing.T) {
	for input, want := range map[string]string{"1": "1.0", "1.0": "1.0", "10.23": "10.23"} {
		v, err := Parse(input)
		if err != nil {
			t.Fatal(err)
		}
		if v.String() != want {
			t.Errorf("Parse(%q).String() = %q, want %q", input, v.String(), want)
		}
	}
}

func TestCompatible(t *testing.T) {
	v1, _ := Parse("1.0")
	v11, _ := Parse("1.1")
	v2, _ := Parse("2.0")

	if !v1.Compatible(v11) || !v11.Compatible(v1) {
		t.Error("1.0 should be compatible with 1.1")
	}
	if v1.Compatible(v2) || v2.Compatible(v1) {
		t.Error("1.0 should NOT be compatible with 2.0")
	}
}

func TestSupported(t *testing.T) {
	tests := map[string]bool{
		"1":   true,
		"1.0": true,
		"1.7": true,
		"2":   false,
		"":    false,
		"x":   false,
	}
	for input, want := range tests {
		if got := Supported(input); got != want {
			t.Errorf("Supported(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestSupportedMajor(t *testing.T) {
	if !SupportedMajor(1) {
		t.Error("SupportedMajor(1) = false, want true")
	}
	if SupportedMajor(2) {
		t.Error("SupportedMajor(2) = true, want false")
	}
}

func TestALPNProtocol(t *testing.T) {
	if got := ALPNProtocol(1); got != "uxr/1" {
		t.Errorf("ALPNProtocol(1) = %q, want %q", got, "uxr/1")
	}
	if got := ALPNProtocol(2); got != "uxr/2" {
		t.Errorf("ALPNProtocol(2) = %q, want %q", got, "uxr/2")
	}
	if ALPN != ALPNProtocol(1) {
		t.Errorf("ALPN = %q, want %q", ALPN, ALPNProtocol(1))
	}
}

func TestMajorFromALPN(t *testing.T) {
	tests := []struct {
		input   string
		want    uint16
		wantErr bool
	}{
		{"uxr/1", 1, false},
		{"uxr/2", 2, false},
		{"http/1.1", 0, true},
		{"uxr/", 0, true},
		{"", 0, true},
		{"uxr/abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := MajorFromALPN(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("MajorFromALPN(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("MajorFromALPN(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestCurrent(t *testing.T) {
	v, err := Parse(Current)
	if err != nil {
		t.Fatalf("Parse(Current) returned error: %v", err)
	}
	if v.String() != Current {
		t.Errorf("Current version = %s, want %s", v, Current)
	}
	if got, _ := Parse(Major); got.Major != v.Major {
		t.Errorf("Major = %d, want %d", got.Major, v.Major)
	}
}
