package promptlib

import "regexp"

// placeholderRe matches {{identifier}} where identifier is word characters.
var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render substitutes answers into template in a single pass. A token whose
// answer is absent or empty is left verbatim, and substituted text is never
// re-scanned for further tokens.
func Render(template string, answers Answers) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(token string) string {
		name := token[2 : len(token)-2]
		if v, ok := answers[name]; ok && v != "" {
			return v
		}
		return token
	})
}

// Placeholders lists the distinct identifiers referenced by template in
// order of first appearance.
func Placeholders(template string) []string {
	seen := map[string]bool{}
	names := []string{}
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Unresolved lists the placeholders still present in rendered output.
func Unresolved(rendered string) []string {
	return Placeholders(rendered)
}
