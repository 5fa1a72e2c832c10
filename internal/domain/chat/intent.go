package chat

import "regexp"

var (
	fileRelatedPattern = regexp.MustCompile(`(?i)\b(files?|documents?|docs?|attach(ed|ments?)?|uploads?|uploaded|pdfs?|docx?|xlsx?|csv|txt|images?|photos?|pictures?|screenshots?|spreadsheets?|reports?)\b` +
		`|\.(pdf|docx?|xlsx?|csv|txt|md|png|jpe?g|gif)\b` +
		`|\b\d{5,}\b`)

	contentVerbPattern = regexp.MustCompile(`(?i)\b(read|extract|summari[sz]e|summary|open|analy[sz]e|review|contents?|inside|quote)\b`)

	contentPhrasePattern = regexp.MustCompile(`(?i)what does (it|the \w+|this \w+|that \w+) say|what('s| is) (written )?in (it|the \w+|this \w+)`)
)

// IsFileRelated reports whether the text mentions files, formats or a bare numeric identifier.
func IsFileRelated(text string) bool {
	return fileRelatedPattern.MatchString(text)
}

// IsContentRequest reports whether the text asks for a file's content to be read.
// It is a subset of IsFileRelated except for explicit phrases such as "what does it say".
func IsContentRequest(text string) bool {
	if contentPhrasePattern.MatchString(text) {
		return true
	}
	return IsFileRelated(text) && contentVerbPattern.MatchString(text)
}
