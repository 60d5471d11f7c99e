// Command httpx-echo serves a few demonstration routes with the httpx engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"dqx0.com/go/verglas/httpx"
	"dqx0.com/go/verglas/internal/config"
	"dqx0.com/go/verglas/internal/obs"
)

func main() {
	cfg, err := config.Parse("httpx-echo", os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := cfg.Logger(os.Stderr)

	srv := httpx.NewServer(cfg.Addrs, routes(logger), cfg.ServerOptions(logger)...)
	if err := srv.Listen(); err != nil {
		logger.Logf(obs.Error, "bind: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go srv.Run()

	<-ctx.Done()
	logger.Logf(obs.Info, "shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Logf(obs.Warn, "shutdown: %v", err)
	}
}

func routes(logger obs.Logger) *httpx.Router {
	return httpx.NewRouterBuilder().
		Get("/", func(*httpx.Request) *httpx.Response {
			return httpx.Text(200, "httpx-echo\n")
		}).
		Post("/echo", func(r *httpx.Request) *httpx.Response {
			return httpx.Text(200, r.BodyString())
		}).
		Get("/hello", func(r *httpx.Request) *httpx.Response {
			name, ok := r.URI.Attribute("name")
			if !ok {
				name = "world"
			}
			return httpx.Text(200, "hello, "+name+"\n")
		}).
		Get("/login", func(r *httpx.Request) *httpx.Response {
			user, ok := r.URI.Attribute("user")
			if !ok || strings.TrimSpace(user) == "" {
				return httpx.Text(500, "missing user\n")
			}
			c := httpx.NewCookieBuilder().
				Key("user").
				Value(user).
				Path("/").
				SameSite("Strict").
				HTTPOnly(true).
				MustBuild()
			res, err := httpx.NewResponseBuilder().Status(200).BodyString("ok\n").Cookie(c).Build()
			if err != nil {
				logger.Logf(obs.Error, "login response: %v", err)
				return httpx.InternalServerError()
			}
			return res
		}).
		Get("/whoami", func(r *httpx.Request) *httpx.Response {
			if user, ok := r.Cookie("user"); ok {
				return httpx.Text(200, user+"\n")
			}
			return httpx.NotFound()
		}).
		Build()
}
