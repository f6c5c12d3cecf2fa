package doctor

import (
	"testing"
)

func TestParseMajorMinor(t *testing.T) {
	tests := []struct {
		name      string
		ver       string
		wantMajor int
		wantMinor int
		wantErr   bool
	}{
		{"simple", "1.51", 1, 51, false},
		{"with patch", "1.52.0", 1, 52, false},
		{"dev suffix", "1.52-dev", 1, 52, false},
		{"single number", "1", 0, 0, true},
		{"empty", "", 0, 0, true},
		{"bad major", "abc.11", 0, 0, true},
		{"bad minor", "1.xyz", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			major, minor, err := parseMajorMinor(tt.ver)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseMajorMinor(%q) = (%d,%d,nil); want error", tt.ver, major, minor)
				}

				return
			}

			if err != nil {
				t.Fatalf("parseMajorMinor(%q) error: %v", tt.ver, err)
			}

			if major != tt.wantMajor || minor != tt.wantMinor {
				t.Fatalf("parseMajorMinor(%q) = (%d,%d); want (%d,%d)",
					tt.ver, major, minor, tt.wantMajor, tt.wantMinor)
			}
		})
	}
}

func TestCheckEspeakVersion(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr bool
	}{
		{"1.51 ok", "eSpeak NG text-to-speech: 1.51  Data at: /usr/share/espeak-ng-data", false},
		{"1.49 ok", "eSpeak NG text-to-speech: 1.49.2  Data at: /usr/share/espeak-ng-data", false},
		{"dev build", "eSpeak NG text-to-speech: 1.52-dev  Data at: /usr/local/share/espeak-ng-data", false},
		{"too old", "eSpeak NG text-to-speech: 1.48.04  Data at: /usr/share/espeak-ng-data", true},
		{"no version", "eSpeak NG text-to-speech", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkEspeakVersion(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkEspeakVersion(%q) = %v; wantErr=%v", tt.line, err, tt.wantErr)
			}
		})
	}
}
