package validation

import (
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFilenameBytes is the longest filename accepted after sanitizing.
const MaxFilenameBytes = 255

// MaxTitleLength bounds the optional share title.
const MaxTitleLength = 200

// MimeTypePattern matches a type/subtype pair, optionally with parameters.
var MimeTypePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]*/[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]*(\s*;.*)?$`)

// unsafeFilenameChars are stripped from filenames before they reach blob keys
// or Content-Disposition headers.
var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Result is the outcome of validating a request. The zero value is a success.
type Result struct {
	Field  string
	Reason string
}

// OK returns true if validation passed.
func (r Result) OK() bool {
	return r.Reason == ""
}

// Fail builds a failed result for a field.
func Fail(field, reason string) Result {
	return Result{Field: field, Reason: reason}
}

// Error implements error so a failed Result can be returned directly.
func (r Result) Error() string {
	if r.Field == "" {
		return r.Reason
	}
	return r.Field + ": " + r.Reason
}

// SanitizeFilename strips directory components, path traversal sequences and
// characters that are unsafe in object keys or HTTP headers.
// Returns "file" if nothing usable is left.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(path.Clean("/" + name))

	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Map(func(r rune) rune {
		if r == utf8.RuneError || !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
	name = whitespaceRun.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, ".")

	if len(name) > MaxFilenameBytes {
		name = truncateKeepExt(name, MaxFilenameBytes)
	}

	if name == "" {
		return "file"
	}
	return name
}

// truncateKeepExt shortens name to at most max bytes, keeping the extension
// and never splitting a UTF-8 sequence.
func truncateKeepExt(name string, max int) string {
	ext := path.Ext(name)
	if len(ext) > 16 {
		ext = ""
	}
	base := strings.TrimSuffix(name, ext)
	limit := max - len(ext)
	for len(base) > limit {
		_, size := utf8.DecodeLastRuneInString(base)
		base = base[:len(base)-size]
	}
	return base + ext
}

// ValidateMimeType checks that a declared content type is well-formed.
func ValidateMimeType(mimeType string) bool {
	if mimeType == "" || len(mimeType) > 255 {
		return false
	}
	return MimeTypePattern.MatchString(mimeType)
}

// ValidateTitle checks the optional share title.
func ValidateTitle(title string) (bool, string) {
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return false, "Title must be 200 characters or fewer"
	}
	for _, r := range title {
		if unicode.IsControl(r) {
			return false, "Title must not contain control characters"
		}
	}
	return true, ""
}
