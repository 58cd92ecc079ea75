package ops

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const argsPlaceholder = "{}"

// ShellOp is a shell command declared in the bot config.
type ShellOp struct {
	CmdName  string `json:"name" yaml:"name" toml:"name"`
	Desc     string `json:"description" yaml:"description" toml:"description"`
	Command  string `json:"command" yaml:"command" toml:"command"`
	WorkDir  string `json:"workdir" yaml:"workdir" toml:"workdir"`
	RiskName string `json:"risk" yaml:"risk" toml:"risk"`
}

func (s *ShellOp) Name() string        { return s.CmdName }
func (s *ShellOp) Description() string { return s.Desc }

// Risk implements RiskClassifier. Unset or invalid levels are RiskLow.
func (s *ShellOp) Risk() RiskLevel {
	r, _ := ParseRisk(s.RiskName)
	return r
}

// Validate checks the fields a config entry must set.
func (s *ShellOp) Validate() error {
	if s.CmdName == "" {
		return fmt.Errorf("missing name")
	}
	if !commandName.MatchString(s.CmdName) {
		return fmt.Errorf("command %q: name must not contain anything but letters, digits and '_'", s.CmdName)
	}
	if s.Command == "" {
		return fmt.Errorf("command %q missing command field", s.CmdName)
	}
	if _, err := ParseRisk(s.RiskName); err != nil {
		return fmt.Errorf("command %q: %w", s.CmdName, err)
	}
	return nil
}

// Execute runs the command in a login shell. Args replace "{}" in the
// command when present, otherwise they are appended.
func (s *ShellOp) Execute(ctx context.Context, args string) (string, error) {
	command := s.Command
	switch {
	case strings.Contains(command, argsPlaceholder):
		command = strings.ReplaceAll(command, argsPlaceholder, args)
	case args != "":
		command = command + " " + args
	}
	cmd := exec.CommandContext(ctx, "bash", "-l", "-c", command)
	if s.WorkDir != "" {
		cmd.Dir = s.WorkDir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s: %w\n%s", s.CmdName, err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}
