package progress

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"colored progress line", "\x1b[31m50.0% of 10MiB at 1.2MiB/s", "50.0% of 10MiB at 1.2MB/s"},
		{"empty", "", ""},
		{"plain", "42.1%", "42.1%"},
		{"padded percent", "\x1b[0;94m  7.3%\x1b[0m", "7.3%"},
		{"kibibytes", " 512.00KiB/s ", "512.00KB/s"},
		{"gibibytes", "1.01GiB/s", "1.01GB/s"},
		{"size without rate is kept", "10.00MiB", "10.00MiB"},
		{"two byte escape", "\x1bMabc", "abc"},
		{"control characters", "00:\r0\t5\n", "00:05"},
		{"non ascii", "ETA 00:10 — done", "ETA 00:10  done"},
		{"unknown", "Unknown", "Unknown"},
		{"garbage", "garbage", "garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalize_OutputIsPrintableASCII(t *testing.T) {
	inputs := []string{
		"\x1b[1;31m\x00\x07100%\x1b[K",
		"\x1b\x1b[",
		"\xff\xfe invalid utf8",
		"速度 3.0MiB/s",
		"\x1b[38;5;208m\x1b(B",
		"   \t\n  ",
	}

	for _, in := range inputs {
		out := Normalize(in)
		if strings.ContainsRune(out, 0x1b) {
			t.Errorf("Normalize(%q) = %q still contains ESC", in, out)
		}
		for _, r := range out {
			if r < 32 || r > 126 {
				t.Errorf("Normalize(%q) = %q contains %U", in, out, r)
			}
		}
		if out != strings.TrimSpace(out) {
			t.Errorf("Normalize(%q) = %q is not trimmed", in, out)
		}
	}
}

func TestNormalize_MalformedPercentDoesNotEndInPercent(t *testing.T) {
	if got := Normalize("garbage"); strings.HasSuffix(got, "%") {
		t.Errorf("expected no %% suffix, got %q", got)
	}
}

func FuzzNormalize(f *testing.F) {
	f.Add("\x1b[31m50.0% of 10MiB at 1.2MiB/s")
	f.Add("")
	f.Add("\x1b[0;32m  1.5KiB/s\x1b[0m")
	f.Add("\x1b\x1b[[m")

	f.Fuzz(func(t *testing.T, s string) {
		once := Normalize(s)
		for _, r := range once {
			if r < 32 || r > 126 {
				t.Fatalf("Normalize(%q) = %q contains %U", s, once, r)
			}
		}
		if twice := Normalize(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", s, once, twice)
		}
	})
}
