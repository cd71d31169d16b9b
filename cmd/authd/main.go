// Command authd runs the authentication service: the auth engine behind its
// HTTP API, backed by Redis.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/ciphemic/authcore"
	"github.com/ciphemic/authcore/httpapi"
	"github.com/ciphemic/authcore/mailer"
	"github.com/ciphemic/authcore/userstore"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	v := viper.New()
	v.SetEnvPrefix("AUTHD")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("app_origin", "http://localhost:3000")
	v.SetDefault("secure_cookies", true)
	v.SetDefault("mail_provider", "log")
	v.SetDefault("mail_from_name", "Auth Service")
	v.SetDefault("mail_from_address", "no-reply@localhost")
	v.SetDefault("shutdown_timeout", "10s")

	cfg := authcore.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(v.GetString("access_secret"))
	cfg.JWT.RefreshSecret = []byte(v.GetString("refresh_secret"))
	cfg.JWT.ResetSecret = []byte(v.GetString("reset_secret"))
	cfg.AppOrigin = v.GetString("app_origin")

	rdb := redis.NewClient(&redis.Options{
		Addr:     v.GetString("redis_addr"),
		Password: v.GetString("redis_password"),
		DB:       v.GetInt("redis_db"),
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return err
	}

	users, err := userstore.New(rdb, "authcore:users")
	if err != nil {
		return err
	}

	mail, err := mailer.NewSender(mailer.Config{
		Provider:     v.GetString("mail_provider"),
		FromName:     v.GetString("mail_from_name"),
		FromAddress:  v.GetString("mail_from_address"),
		SMTPHost:     v.GetString("smtp_host"),
		SMTPPort:     v.GetInt("smtp_port"),
		SMTPUsername: v.GetString("smtp_username"),
		SMTPPassword: v.GetString("smtp_password"),
		SendGridKey:  v.GetString("sendgrid_key"),
	})
	if err != nil {
		return err
	}

	engine, err := authcore.New(cfg, rdb, users, mail)
	if err != nil {
		return err
	}

	api := httpapi.NewServer(engine, httpapi.Options{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SecureCookies: v.GetBool("secure_cookies"),
	})

	srv := &http.Server{
		Addr:              v.GetString("listen_addr"),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), v.GetDuration("shutdown_timeout"))
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
