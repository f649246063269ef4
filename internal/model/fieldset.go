package model

import "fmt"

// ParseFieldSet parses a GraphQL selection-shape string as used by
// `@key(fields: "...")`, `@requires(fields: "...")` and
// `@provides(fields: "...")` (spec §3 "KeyFieldSet"): a whitespace
// separated list of field names, each optionally followed by a
// `{ ... }` nested selection. No arguments, aliases, or fragments are
// legal in this mini-grammar.
func ParseFieldSet(src string) (*KeyFieldSet, error) {
	toks := tokenizeFieldSet(src)
	set, rest, err := parseFieldSetTokens(toks)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("unexpected trailing token %q in field set %q", rest[0], src)
	}
	return set, nil
}

func tokenizeFieldSet(src string) []string {
	var toks []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			toks = append(toks, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range src {
		switch r {
		case '{', '}':
			flush()
			toks = append(toks, string(r))
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return toks
}

func parseFieldSetTokens(toks []string) (*KeyFieldSet, []string, error) {
	set := &KeyFieldSet{}
	for len(toks) > 0 {
		if toks[0] == "}" {
			return set, toks, nil
		}
		name := toks[0]
		toks = toks[1:]
		field := KeyField{Name: name}
		if len(toks) > 0 && toks[0] == "{" {
			nested, rest, err := parseFieldSetTokens(toks[1:])
			if err != nil {
				return nil, nil, err
			}
			if len(rest) == 0 || rest[0] != "}" {
				return nil, nil, fmt.Errorf("unterminated nested selection after %q", name)
			}
			field.Nested = nested
			toks = rest[1:]
		}
		set.Fields = append(set.Fields, field)
	}
	return set, toks, nil
}
