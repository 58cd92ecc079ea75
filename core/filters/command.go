package filters

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdelaire/openbot/core/dispatch"
)

// CommandObject is a parsed command. When a Command filter matches it is
// stored in the request Context, so handlers can take it as an argument.
type CommandObject struct {
	Prefix  string
	Command string
	// Mention is the bot username after '@', if any.
	Mention string
	Args    string
}

// Text renders the command back to its text form.
func (c CommandObject) Text() string {
	s := c.Prefix + c.Command
	if c.Mention != "" {
		s += "@" + c.Mention
	}
	if c.Args != "" {
		s += " " + c.Args
	}
	return s
}

// Fields splits Args on whitespace.
func (c CommandObject) Fields() []string { return strings.Fields(c.Args) }

// parseCommand splits "/cmd@bot args" into its parts. It returns false when
// text does not start with one of prefixes or has an empty command.
func parseCommand(text, prefixes string) (CommandObject, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return CommandObject{}, false
	}
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError || !strings.ContainsRune(prefixes, r) {
		return CommandObject{}, false
	}
	prefix := text[:size]

	head, args := text[size:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i != -1 {
		_, w := utf8.DecodeRuneInString(head[i:])
		head, args = head[:i], head[i+w:]
	}
	cmd, mention, _ := strings.Cut(head, "@")
	if cmd == "" {
		return CommandObject{}, false
	}
	return CommandObject{
		Prefix:  prefix,
		Command: cmd,
		Mention: mention,
		Args:    strings.TrimSpace(args),
	}, true
}

// CommandFilter matches bot commands. Build it with Command.
type CommandFilter struct {
	commands      []string
	patterns      []*regexp.Regexp
	prefixes      string
	ignoreCase    bool
	ignoreMention bool
	username      string
}

// CommandOption configures a CommandFilter.
type CommandOption func(*CommandFilter)

// WithPrefixes sets the accepted prefix characters. Default "/".
func WithPrefixes(prefixes string) CommandOption {
	return func(f *CommandFilter) { f.prefixes = prefixes }
}

// IgnoreCase compares command names case-insensitively.
func IgnoreCase() CommandOption {
	return func(f *CommandFilter) { f.ignoreCase = true }
}

// IgnoreMention accepts commands addressed to any bot.
func IgnoreMention() CommandOption {
	return func(f *CommandFilter) { f.ignoreMention = true }
}

// WithUsername sets the bot username a mention must match.
func WithUsername(username string) CommandOption {
	return func(f *CommandFilter) { f.username = strings.TrimPrefix(username, "@") }
}

// WithPattern also accepts commands whose name matches re.
func WithPattern(re *regexp.Regexp) CommandOption {
	return func(f *CommandFilter) { f.patterns = append(f.patterns, re) }
}

// Command matches messages whose text is one of commands. Commands are
// given without prefix.
//
//	r.Message().Register(start, filters.Command([]string{"start"}))
func Command(commands []string, opts ...CommandOption) *CommandFilter {
	f := &CommandFilter{commands: commands, prefixes: "/"}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Check implements dispatch.Filter.
func (f *CommandFilter) Check(_ context.Context, req *dispatch.Request) bool {
	m, ok := message(req)
	if !ok {
		return false
	}
	cmd, ok := parseCommand(m.TextOrCaption(), f.prefixes)
	if !ok || !f.mentionOK(cmd.Mention) || !f.matches(cmd.Command) {
		return false
	}
	dispatch.Set(req.Context, cmd)
	return true
}

func (f *CommandFilter) mentionOK(mention string) bool {
	if mention == "" || f.ignoreMention || f.username == "" {
		return true
	}
	return strings.EqualFold(mention, f.username)
}

func (f *CommandFilter) matches(name string) bool {
	for _, c := range f.commands {
		if name == c || (f.ignoreCase && strings.EqualFold(name, c)) {
			return true
		}
	}
	for _, re := range f.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
