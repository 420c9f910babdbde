package validation

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name", "report.pdf", "report.pdf"},
		{"keeps spaces", "quarterly report.pdf", "quarterly report.pdf"},
		{"collapses whitespace", "my    file.txt", "my file.txt"},
		{"unix path", "/home/user/report.pdf", "report.pdf"},
		{"windows path", `C:\Users\ada\report.pdf`, "report.pdf"},
		{"path traversal", "../../etc/passwd", "passwd"},
		{"traversal only", "..", "file"},
		{"empty", "", "file"},
		{"only unsafe chars", `<>:"|?*`, "file"},
		{"strips unsafe chars", `a<b>c:d"e|f?g*.txt`, "abcdefg.txt"},
		{"strips control chars", "evil\x00name\r\n.txt", "evilname.txt"},
		{"strips leading dots", ".htaccess", "htaccess"},
		{"unicode kept", "résumé 日本.pdf", "résumé 日本.pdf"},
		{"trims surrounding space", "  spaced.txt  ", "spaced.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFilename(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	long := strings.Repeat("a", 300) + ".txt"
	got := SanitizeFilename(long)
	if len(got) != MaxFilenameBytes {
		t.Errorf("len(SanitizeFilename(long)) = %d, want %d", len(got), MaxFilenameBytes)
	}
	if !strings.HasSuffix(got, ".txt") {
		t.Errorf("SanitizeFilename(long) = %q, want .txt suffix", got)
	}

	multibyte := strings.Repeat("é", 200) + ".md"
	got = SanitizeFilename(multibyte)
	if len(got) > MaxFilenameBytes {
		t.Errorf("len(SanitizeFilename(multibyte)) = %d, want <= %d", len(got), MaxFilenameBytes)
	}
	if !strings.HasSuffix(got, "é.md") {
		t.Errorf("SanitizeFilename(multibyte) split a rune: %q", got)
	}
}

func TestValidateMimeType(t *testing.T) {
	tests := []struct {
		name string
		mime string
		want bool
	}{
		{"pdf", "application/pdf", true},
		{"with params", "text/plain; charset=utf-8", true},
		{"svg", "image/svg+xml", true},
		{"vendor", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
		{"empty", "", false},
		{"no subtype", "application", false},
		{"missing type", "/pdf", false},
		{"spaces", "text / plain", false},
		{"too long", "a/" + strings.Repeat("b", 300), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMimeType(tt.mime); got != tt.want {
				t.Errorf("ValidateMimeType(%q) = %v, want %v", tt.mime, got, tt.want)
			}
		})
	}
}

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		valid   bool
		wantMsg string
	}{
		{"empty", "", true, ""},
		{"normal", "Holiday photos", true, ""},
		{"max length", strings.Repeat("x", 200), true, ""},
		{"too long", strings.Repeat("x", 201), false, "Title must be 200 characters or fewer"},
		{"control char", "bad\x07title", false, "Title must not contain control characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, msg := ValidateTitle(tt.title)
			if valid != tt.valid {
				t.Errorf("ValidateTitle(%q) valid = %v, want %v", tt.title, valid, tt.valid)
			}
			if !valid && msg != tt.wantMsg {
				t.Errorf("ValidateTitle(%q) msg = %q, want %q", tt.title, msg, tt.wantMsg)
			}
		})
	}
}

func TestResult(t *testing.T) {
	var ok Result
	if !ok.OK() {
		t.Error("zero Result should be OK")
	}

	failed := Fail("durationHours", "out of range")
	if failed.OK() {
		t.Error("Fail() result should not be OK")
	}
	if failed.Error() != "durationHours: out of range" {
		t.Errorf("Error() = %q", failed.Error())
	}
	if Fail("", "bad body").Error() != "bad body" {
		t.Errorf("Error() without field = %q", Fail("", "bad body").Error())
	}
}
