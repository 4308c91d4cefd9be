package coauthors

import (
	"html"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	octetPattern      = regexp.MustCompile(`%[a-fA-F0-9]{2}`)
	entityPattern     = regexp.MustCompile(`&[^\s&;]+?;`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	emailLocalInvalid = regexp.MustCompile("[^a-zA-Z0-9!#$%&'*+/=?^_`{|}~.-]")
	emailSubInvalid   = regexp.MustCompile(`[^a-zA-Z0-9-]`)

	stripPolicyOnce sync.Once
	stripPolicy     *bluemonday.Policy

	// loginDropped are symbols removed from logins instead of spelled out.
	loginDropped = map[string]string{"&": "", "@": ""}
)

func strictPolicy() *bluemonday.Policy {
	stripPolicyOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}

// stripTags removes all markup, dropping the content of script and style elements.
func stripTags(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return s
	}
	return html.UnescapeString(strictPolicy().Sanitize(s))
}

// escapeLoneLessThan encodes every "<" that does not open a tag, so a
// later entity pass removes it instead of leaving it in the text.
func escapeLoneLessThan(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '<' {
			b.WriteByte(s[i])
			continue
		}
		if end := strings.IndexAny(s[i+1:], "<>"); end >= 0 && s[i+1+end] == '>' {
			b.WriteByte('<')
			continue
		}
		b.WriteString("&lt;")
	}
	return b.String()
}

// stripOctets removes percent-encoded octets until none are left.
func stripOctets(s string) string {
	for octetPattern.MatchString(s) {
		s = octetPattern.ReplaceAllString(s, "")
	}
	return s
}

// RemoveAccents folds accented characters to their base letters.
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// SanitizeTextField cleans a single-line text input: invalid UTF-8 yields
// an empty string, tags and octets are removed and whitespace is collapsed.
func SanitizeTextField(s string) string {
	if !utf8.ValidString(s) {
		return ""
	}
	s = stripTags(s)
	s = stripOctets(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SanitizeTextList applies SanitizeTextField to every value and drops empties.
func SanitizeTextList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if clean := SanitizeTextField(v); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

// SanitizeUser cleans a display name the way account names are cleaned:
// entities, tags, accents and octets are removed. A "<" that opens no tag
// is dropped.
func SanitizeUser(s string) string {
	if !utf8.ValidString(s) {
		return ""
	}
	s = escapeLoneLessThan(s)
	s = entityPattern.ReplaceAllString(s, "")
	s = stripTags(s)
	s = RemoveAccents(s)
	s = stripOctets(s)
	s = strings.TrimSpace(s)
	return whitespacePattern.ReplaceAllString(s, " ")
}

// SanitizeEmail strips characters that are not allowed in an email address.
// It returns an empty string when the input cannot be an address at all.
func SanitizeEmail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return ""
	}
	at := strings.Index(s[1:], "@")
	if at < 0 {
		return ""
	}
	at++
	local := emailLocalInvalid.ReplaceAllString(s[:at], "")
	if local == "" {
		return ""
	}

	domain := s[at+1:]
	for strings.Contains(domain, "..") {
		domain = strings.ReplaceAll(domain, "..", "")
	}
	domain = strings.Trim(domain, " \t\n\r\x00\x0B.")
	if domain == "" {
		return ""
	}

	var subs []string
	for _, sub := range strings.Split(domain, ".") {
		sub = strings.Trim(sub, " \t\n\r\x00\x0B-")
		sub = emailSubInvalid.ReplaceAllString(sub, "")
		if sub != "" {
			subs = append(subs, sub)
		}
	}
	if len(subs) < 2 {
		return ""
	}

	return local + "@" + strings.Join(subs, ".")
}

// Slugify turns a display name into a login. Symbols such as "&" and "@"
// are dropped rather than spelled out.
func Slugify(s string) string {
	return slug.Make(slug.Substitute(RemoveAccents(s), loginDropped))
}

// NormalizeEmail lowercases and trims an email for comparisons.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
