// Command openbot runs a chat-ops bot: allowlisted chats send /commands
// that run configured operations, guarded by one-time codes.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/jdelaire/openbot/core/client"
	"github.com/jdelaire/openbot/internal/config"
	"github.com/jdelaire/openbot/internal/keychain"
)

const usage = `Usage: openbot <command> [flags]

Commands:
  run            Start the bot (polling or webhook mode)
  check-config   Validate the config file and exit
  token set      Read a bot token from stdin and store it in the OS keychain
  token check    Verify the stored token with getMe
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "openbot: %s\n", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch strings.ToLower(args[0]) {
	case "run":
		return runCmd(ctx, args[1:])
	case "check-config":
		return checkConfigCmd(args[1:], stdout)
	case "token":
		if len(args) < 2 {
			return errUsage
		}
		switch strings.ToLower(args[1]) {
		case "set":
			return tokenSetCmd(args[2:], stdin, stdout)
		case "check":
			return tokenCheckCmd(ctx, args[2:], stdout)
		}
		return errUsage
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return errUsage
	}
}

func newFlags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.StringP("config", "c", config.DefaultPath(), "Path to the config file (.yaml, .toml or .json)")
	return fs, path
}

func runCmd(ctx context.Context, args []string) error {
	fs, path := newFlags("run")
	mode := fs.String("mode", "", "Override the configured mode: polling or webhook")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return err
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Level())
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	token, err := resolveToken(cfg)
	if err != nil {
		return err
	}
	bot := client.New(token)
	me, err := bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot identity: %w", err)
	}
	logger.Info("authenticated", "bot_id", me.ID, "username", me.Username)

	a, err := newApp(cfg, bot, me.Username, logger, level)
	if err != nil {
		return err
	}
	return a.run(ctx, *path)
}

func checkConfigCmd(args []string, stdout io.Writer) error {
	fs, path := newFlags("check-config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*path)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: ok (mode %s, %d allowed chats, %d commands)\n",
		*path, cfg.Mode, len(cfg.AllowedChats), len(cfg.Commands))
	return nil
}

func tokenSetCmd(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("token set", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if err := client.ValidateToken(token); err != nil {
		return err
	}
	if err := keychain.Set(keychain.TokenAccount, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	fmt.Fprintln(stdout, "token stored in keychain")
	return nil
}

func tokenCheckCmd(ctx context.Context, args []string, stdout io.Writer) error {
	fs, path := newFlags("token check")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := &config.Config{}
	if loaded, err := config.Load(*path); err == nil {
		cfg = loaded
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	token, err := resolveToken(cfg)
	if err != nil {
		return err
	}
	me, err := client.New(token).GetMe(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "token ok: @%s (id %d)\n", me.Username, me.ID)
	return nil
}

// resolveToken prefers the config, then OPENBOT_TOKEN, then the keychain.
func resolveToken(cfg *config.Config) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	if v, ok := os.LookupEnv("OPENBOT_TOKEN"); ok && v != "" {
		return v, nil
	}
	token, err := keychain.Get(keychain.TokenAccount)
	if err != nil {
		if errors.Is(err, keychain.ErrNotFound) {
			return "", fmt.Errorf("no bot token: set OPENBOT_TOKEN, token in config, or run 'openbot token set'")
		}
		return "", fmt.Errorf("read token from keychain: %w", err)
	}
	return token, nil
}
