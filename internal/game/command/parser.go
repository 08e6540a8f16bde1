package command

import "strings"

// Prefix marks a chat line as a command.
const Prefix = "!"

// ParseResult holds the parsed verb and arguments from a chat line.
type ParseResult struct {
	// Verb is the word after the prefix, lowercased.
	Verb string
	// Args are the remaining words after the verb.
	Args []string
	// RawArgs is the raw text after the verb, spacing preserved, for
	// freeform arguments such as campaign names.
	RawArgs string
}

// IsCommand reports whether line is a `!`-prefixed command.
func IsCommand(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, Prefix) && len(line) > len(Prefix)
}

// Parse splits a `!`-prefixed chat line into a verb and arguments.
//
// Postcondition: Returns a ParseResult; Verb is empty when line is not a
// command.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if !IsCommand(line) {
		return ParseResult{}
	}
	line = line[len(Prefix):]

	spaceIdx := strings.IndexByte(line, ' ')
	if spaceIdx < 0 {
		return ParseResult{Verb: strings.ToLower(line)}
	}

	verb := strings.ToLower(line[:spaceIdx])
	rest := strings.TrimSpace(line[spaceIdx+1:])

	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}
	return ParseResult{Verb: verb, Args: args, RawArgs: rest}
}

// Arg returns the i'th argument, or "" when absent.
func (p ParseResult) Arg(i int) string {
	if i < 0 || i >= len(p.Args) {
		return ""
	}
	return p.Args[i]
}
