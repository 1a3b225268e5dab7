package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"ticketbot/utils"
)

// ExistsFunc reports whether an organizer code is already taken.
type ExistsFunc func(code string) (bool, error)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

var fillerWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "for": {}, "of": {},
	"at": {}, "in": {}, "on": {}, "to": {}, "my": {}, "our": {},
}

// GenerateOrganizerCode derives a short shareable code from the event name
// and date, probing for collisions until a free code is found. Collisions
// get a letter suffix A..J, then a random 3-char suffix.
func GenerateOrganizerCode(eventName, eventDate string, exists ExistsFunc) (string, error) {
	base := codeAcronym(eventName) + yearSuffix(eventDate)

	for attempt := 0; attempt <= 10; attempt++ {
		code := base
		if attempt > 0 {
			code = base + string(rune('A'+attempt-1))
		}
		taken, err := exists(code)
		if err != nil {
			return "", fmt.Errorf("generateOrganizerCode: probe %q: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}
	suffix, err := utils.RandomSuffix(3)
	if err != nil {
		return "", fmt.Errorf("generateOrganizerCode: random suffix: %w", err)
	}
	return base + suffix, nil
}

func codeAcronym(eventName string) string {
	cleaned := nonAlnum.ReplaceAllString(eventName, " ")

	var words []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) >= 2 && isAlpha(w) {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return "EVENT"
	}
	if len(words) == 1 {
		return strings.ToUpper(truncate(words[0], 6))
	}

	var meaningful []string
	for _, w := range words {
		if _, filler := fillerWords[strings.ToLower(w)]; !filler {
			meaningful = append(meaningful, w)
		}
	}

	var first, second string
	if len(meaningful) >= 2 {
		first, second = meaningful[len(meaningful)-2], meaningful[len(meaningful)-1]
	} else {
		first, second = words[0], words[1]
	}
	return strings.ToUpper(truncate(first, 5)) + "-" + strings.ToUpper(truncate(second, 5))
}

func yearSuffix(eventDate string) string {
	if parts := strings.SplitN(eventDate, "-", 2); len(parts[0]) == 4 {
		return parts[0][2:]
	}
	return fmt.Sprintf("%02d", time.Now().Year()%100)
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
