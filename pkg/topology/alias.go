package topology

import (
	"strings"
)

// aliasDirective starts a line declaring a textual substitution.
const aliasDirective = "#alias"

type alias struct {
	name  string
	value string
}

// ApplyAliases removes every `#alias NAME VALUE` line from data and replaces
// each occurrence of NAME in the remaining text with VALUE. VALUE is the
// rest of the line with runs of whitespace collapsed to a single space.
// Aliases are applied in declaration order; redeclaring a name replaces
// its value. Lines with fewer than three fields are dropped without effect.
func ApplyAliases(data []byte) []byte {
	lines := strings.Split(string(data), "\n")

	var aliases []alias
	index := make(map[string]int)
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, aliasDirective) {
			kept = append(kept, line)
			continue
		}

		fields := strings.Fields(trimmed)
		if len(fields) < 3 || fields[0] != aliasDirective {
			continue
		}
		a := alias{name: fields[1], value: strings.Join(fields[2:], " ")}
		if i, ok := index[a.name]; ok {
			aliases[i] = a
			continue
		}
		index[a.name] = len(aliases)
		aliases = append(aliases, a)
	}

	out := strings.Join(kept, "\n")
	for _, a := range aliases {
		out = strings.ReplaceAll(out, a.name, a.value)
	}
	return []byte(out)
}
