// authctl - операторская утилита: блокировка пользователей, отзыв токенов
// и применение миграций без запуска HTTP-сервера.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	"github.com/pribylovaa/realty-auth/internal/app"
	"github.com/pribylovaa/realty-auth/internal/config"
)

const usage = `usage: authctl [--config path] <command> [flags]

commands:
  block      --user <uuid>                  block user and revoke all sessions
  unblock    --user <uuid>                  unblock user
  revoke     --user <uuid> --token <token>  revoke a single token
  revoke-all --user <uuid>                  revoke all sessions of user
  migrate                                   apply database migrations
`

var errUsage = errors.New("invalid usage")

type command struct {
	name   string
	userID uuid.UUID
	token  string
}

// admin - операции Service, доступные оператору.
type admin interface {
	BlockUser(ctx context.Context, userID uuid.UUID) (int, error)
	UnblockUser(ctx context.Context, userID uuid.UUID) error
	RevokeToken(ctx context.Context, userID uuid.UUID, token string) error
	RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int, error)
}

func main() {
	configPath, cmd, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.MustLoad(configPath)
	if cmd.name == "migrate" {
		cfg.DB.AutoMigrate = true
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("app_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	if err := execute(ctx, a.Service, cmd, os.Stdout); err != nil {
		log.Error("command_failed", slog.String("command", cmd.name), slog.String("err", err.Error()))
		_ = a.Close()
		os.Exit(1)
	}
}

// parseArgs разбирает глобальные флаги и флаги подкоманды.
func parseArgs(args []string) (string, command, error) {
	global := flag.NewFlagSet("authctl", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	global.SetInterspersed(false)
	configPath := global.String("config", "", "path to config file")

	if err := global.Parse(args); err != nil {
		return "", command{}, err
	}

	rest := global.Args()
	if len(rest) == 0 {
		return "", command{}, fmt.Errorf("%w: command is required", errUsage)
	}

	cmd := command{name: rest[0]}

	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	user := fs.StringP("user", "u", "", "user id")
	tok := fs.StringP("token", "t", "", "token to revoke")

	if err := fs.Parse(rest[1:]); err != nil {
		return "", command{}, fmt.Errorf("%s: %w", cmd.name, err)
	}

	switch cmd.name {
	case "migrate":
		return *configPath, cmd, nil
	case "block", "unblock", "revoke", "revoke-all":
	default:
		return "", command{}, fmt.Errorf("%w: unknown command %q", errUsage, cmd.name)
	}

	id, err := uuid.Parse(*user)
	if err != nil {
		return "", command{}, fmt.Errorf("%w: --user must be a uuid", errUsage)
	}
	cmd.userID = id

	if cmd.name == "revoke" {
		if *tok == "" {
			return "", command{}, fmt.Errorf("%w: --token is required", errUsage)
		}
		cmd.token = *tok
	}

	return *configPath, cmd, nil
}

// execute выполняет подкоманду; migrate уже отработал при сборке app.
func execute(ctx context.Context, adm admin, cmd command, out io.Writer) error {
	switch cmd.name {
	case "migrate":
		fmt.Fprintln(out, "migrations applied")

	case "block":
		n, err := adm.BlockUser(ctx, cmd.userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "user %s blocked, %d sessions revoked\n", cmd.userID, n)

	case "unblock":
		if err := adm.UnblockUser(ctx, cmd.userID); err != nil {
			return err
		}
		fmt.Fprintf(out, "user %s unblocked\n", cmd.userID)

	case "revoke":
		if err := adm.RevokeToken(ctx, cmd.userID, cmd.token); err != nil {
			return err
		}
		fmt.Fprintln(out, "token revoked")

	case "revoke-all":
		n, err := adm.RevokeAllSessions(ctx, cmd.userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d sessions revoked\n", n)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd.name)
	}

	return nil
}
