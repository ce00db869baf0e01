package notification

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Render replaces {name} placeholders with vars[name]. Unknown names render as "".
func Render(tpl string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		return vars[match[1:len(match)-1]]
	})
}
