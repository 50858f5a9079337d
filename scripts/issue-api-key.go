package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/numberadder/numberadder/internal/auth"
	"github.com/numberadder/numberadder/internal/cache"
	"github.com/numberadder/numberadder/internal/config"
	"github.com/numberadder/numberadder/internal/metrics"
	"github.com/numberadder/numberadder/internal/repository"
	"github.com/numberadder/numberadder/internal/repository/backend"
	"github.com/numberadder/numberadder/internal/service"
)

type output struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Key       string    `json:"api_key"`
	KeyPrefix string    `json:"key_prefix"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	formatPlain = "plain"
	formatJSON  = "json"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// parseFormat normalizes -format. It must pass before a key is issued.
func parseFormat(raw string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(raw)); f {
	case formatPlain, formatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format %q; use plain or json", raw)
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("issue-api-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		driver      = fs.String("driver", envOr("DATABASE_DRIVER", config.DriverPostgres), "Store driver: postgres or sqlite")
		databaseURL = fs.String("database-url", os.Getenv("DATABASE_URL"), "Postgres URL or SQLite file path")
		redisURL    = fs.String("redis-url", os.Getenv("REDIS_URL"), "Optional Redis URL; clears the cached resolution of the replaced key")
		email       = fs.String("email", "", "Email of the account receiving the key")
		rawFormat   = fs.String("format", formatPlain, "Output format: plain or json")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	format, err := parseFormat(*rawFormat)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if *databaseURL == "" {
		fmt.Fprintln(stderr, "DATABASE_URL is required")
		return 2
	}
	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(stderr, "-email is required")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := backend.Open(ctx, *driver, *databaseURL, logger)
	if err != nil {
		fmt.Fprintln(stderr, "connect database:", err)
		return 1
	}
	defer store.Close()

	user, err := store.FindUserByEmail(ctx, *email)
	if errors.Is(err, repository.ErrUserNotFound) {
		fmt.Fprintf(stderr, "no account registered for %s\n", *email)
		return 1
	}
	if err != nil {
		fmt.Fprintln(stderr, "find user:", err)
		return 1
	}

	var keys service.KeyInvalidator
	if *redisURL != "" {
		c, err := cache.New(ctx, *redisURL, cache.DefaultKeyTTL)
		if err != nil {
			fmt.Fprintln(stderr, "connect redis:", err)
			return 1
		}
		defer c.Close()
		keys = c
	}

	accounts := service.NewAccountService(store, noTokens{}, keys, nil, logger, metrics.NewNoop())
	issued, err := accounts.IssueAPIKey(ctx, user.ID)
	if err != nil {
		fmt.Fprintln(stderr, "issue api key:", err)
		return 1
	}

	out := output{
		UserID:    user.ID,
		Email:     user.Email,
		Key:       issued.Key,
		KeyPrefix: issued.KeyPrefix,
		CreatedAt: issued.CreatedAt,
	}

	if format == formatJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintln(stderr, "write output:", err)
			return 1
		}
		return 0
	}
	fmt.Fprintln(stdout, out.Key)
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// noTokens satisfies service.TokenIssuer for a tool that never signs tokens.
type noTokens struct{}

func (noTokens) Issue(int64) (string, time.Time, error) {
	return "", time.Time{}, auth.ErrMissingSecret
}
