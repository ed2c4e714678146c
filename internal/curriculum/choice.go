package curriculum

import (
	"strconv"
	"strings"
)

// ParseChoice maps a learner's multiple-choice answer to a zero-based option
// index. It accepts the option text (case-insensitive), a 1-based number or a
// letter. It returns -1 when nothing matches.
func ParseChoice(answer string, options []string) int {
	a := strings.TrimSpace(answer)
	if a == "" {
		return -1
	}
	for i, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), a) {
			return i
		}
	}
	if n, err := strconv.Atoi(strings.TrimSuffix(a, ")")); err == nil {
		if n >= 1 && n <= len(options) {
			return n - 1
		}
		return -1
	}
	a = strings.TrimSuffix(a, ")")
	if len(a) == 1 {
		c := strings.ToLower(a)[0]
		if c >= 'a' && int(c-'a') < len(options) {
			return int(c - 'a')
		}
	}
	return -1
}

// OptionLabel renders option i as "B) text".
func OptionLabel(options []string, i int) string {
	if i < 0 || i >= len(options) {
		return ""
	}
	return string(rune('A'+i)) + ") " + options[i]
}
