package selector

import (
	"regexp"
	"strings"
	"unicode"
)

var stopwords = toSet(
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "do", "does", "for", "from", "has",
	"have", "how", "i", "if", "in", "into", "is", "it", "its", "me", "my", "of", "on", "or", "our",
	"so", "such", "than", "that", "the", "their", "them", "then", "there", "these", "they", "this",
	"those", "to", "up", "us", "was", "we", "were", "what", "which", "while", "who", "why", "with",
	"you", "your", "all", "any", "some", "about", "over", "out", "via", "not", "no",
)

// filler words describe how a skill is invoked rather than what it is for.
var filler = toSet(
	"use", "used", "using", "when", "whenever", "user", "says", "say", "asks", "ask", "asked",
	"want", "wants", "need", "needs", "help", "helps", "skill", "skills", "task", "tasks",
	"mention", "mentions", "like", "e", "g", "eg", "etc", "also", "can",
	"should", "would", "will", "may", "might", "please", "any", "thing", "things", "stuff",
	"trigger", "triggers", "invoke", "provide", "provides", "support", "supports",
)

// genericVerbs name an action without saying what it acts on, so they never
// tie a request to one skill.
var genericVerbs = toSet(
	"list", "show", "view", "check", "get", "find", "open", "run", "make", "build", "create",
	"do", "look", "see", "tell", "give", "let", "try", "start", "work",
)

var quotedPhrase = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])'([^'\n]+)'|"([^"\n]+)"`)

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// words lowercases s and splits it on anything that is not a letter or digit.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// stem strips simple English plurals so "issues" matches "issue".
func stem(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) >= 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us"):
		return w[:len(w)-1]
	}
	return w
}

// Terms returns the concrete, stemmed terms of s in first-seen order.
func Terms(s string) []string {
	var terms []string
	seen := map[string]bool{}
	for _, w := range words(s) {
		if ignored(w) {
			continue
		}
		t := stem(w)
		if ignored(t) || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	return terms
}

func ignored(w string) bool {
	return stopwords[w] || filler[w] || genericVerbs[w]
}

// QuotedPhrases returns example phrases written in single or double quotes.
func QuotedPhrases(s string) []string {
	var phrases []string
	for _, m := range quotedPhrase.FindAllStringSubmatch(s, -1) {
		phrase := m[1]
		if phrase == "" {
			phrase = m[2]
		}
		if normalized := normalize(phrase); normalized != "" {
			phrases = append(phrases, normalized)
		}
	}
	return phrases
}

func normalize(s string) string {
	return strings.Join(words(s), " ")
}
