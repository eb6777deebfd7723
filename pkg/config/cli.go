package config

import "strings"

// cliFlagsToNested converts flat "dot.separated" or "dash-separated" flag
// names into the nested map shape the rest of the config layers use, e.g.
// {"server-port": 9000} -> {"server": {"port": 9000}}.
func cliFlagsToNested(flags map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range flags {
		parts := strings.Split(strings.ReplaceAll(k, "-", "."), ".")
		setNested(out, parts, v)
	}
	return out
}

func setNested(root map[string]any, parts []string, value any) {
	if len(parts) == 1 {
		root[parts[0]] = value
		return
	}
	next, ok := root[parts[0]].(map[string]any)
	if !ok {
		next = map[string]any{}
		root[parts[0]] = next
	}
	setNested(next, parts[1:], value)
}
