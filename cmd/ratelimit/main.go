// Command ratelimit lists and clears the shared sign-in, registration,
// password reset and contact rate limit windows kept in redis.
//
//	ratelimit [-addr host:port] [-scope auth.sign_in] list
//	ratelimit [-addr host:port] -scope auth.sign_in reset ip:203.0.113.7
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/redis"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ratelimit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		addr    = fs.String("addr", envOr("REDIS_ADDR", "127.0.0.1:6379"), "redis address host:port")
		pass    = fs.String("pass", os.Getenv("REDIS_PASSWORD"), "redis password")
		db      = fs.Int("db", envInt("REDIS_DB", 0), "redis db")
		scope   = fs.String("scope", "", "limit scope, e.g. auth.sign_in")
		timeout = fs.Duration("timeout", 5*time.Second, "overall timeout")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := redis.New(*addr, *pass, *db)
	defer c.Close()

	if err := c.Ping(ctx); err != nil {
		fmt.Fprintf(stderr, "redis ping failed: %v\n", err)
		return 1
	}

	if err := dispatch(ctx, redis.NewFixedWindowLimiter(c), *scope, fs.Args(), stdout); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, l *redis.FixedWindowLimiter, scope string, args []string, out io.Writer) error {
	cmd := "list"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "list":
		counters, err := l.Counters(ctx, scope)
		if err != nil {
			return err
		}
		if len(counters) == 0 {
			fmt.Fprintln(out, "no open windows")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SCOPE\tIDENTITY\tHITS\tTTL")
		for _, c := range counters {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.Scope, c.Identity, c.Hits, c.TTL.Round(time.Second))
		}
		return tw.Flush()

	case "reset":
		if scope == "" || len(args) != 2 {
			return errors.New("usage: ratelimit -scope <scope> reset <identity>")
		}
		ok, err := l.Reset(ctx, scope, args[1])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "no window for", args[1])
			return nil
		}
		fmt.Fprintln(out, "cleared", scope, args[1])
		return nil

	default:
		return fmt.Errorf("unknown command %q (list|reset)", cmd)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return n
}
