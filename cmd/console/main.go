// Package main runs the voter console: it polls the API and logs the polls the
// signed-in user can vote in.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/estetica-academy/presenciales/config"
	"github.com/estetica-academy/presenciales/internal/console"
	"github.com/estetica-academy/presenciales/pkg/apiclient"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	tokens := apiclient.FileTokenSource{Path: cfg.Console.TokenFile}
	tok, err := tokens.Token(context.Background())
	if err != nil {
		logger.Fatal("session token", zap.Error(err), zap.String("file", cfg.Console.TokenFile))
	}
	who, err := apiclient.IdentityFromToken(tok)
	if err != nil {
		logger.Fatal("session token", zap.Error(err))
	}

	client := apiclient.New(cfg.Console.APIBaseURL, tokens, apiclient.WithLogger(logger))
	voter := console.NewVoter(client, who.UserID, who.Email, time.Duration(cfg.Console.RefreshSecs)*time.Second, logger)

	unsubscribe := voter.State().Subscribe(func(s console.Snapshot) {
		if s.Err != nil {
			logger.Warn("polls unavailable", zap.Error(s.Err))
			return
		}
		for _, p := range s.Polls {
			st, _ := voter.Status(p.ID)
			logger.Info("poll",
				zap.String("poll_id", p.ID.String()),
				zap.String("title", p.Title),
				zap.String("status", string(p.Status)),
				zap.Bool("eligible", st.Eligible),
				zap.Bool("deadline_passed", st.DeadlinePassed),
				zap.Bool("can_vote", voter.CanVote(p.ID)),
			)
		}
		logger.Info("access", zap.Bool("has_access", voter.HasAccess()), zap.Int("polls", len(s.Polls)))
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	voter.Watch(ctx)
	logger.Info("console started", zap.String("api", cfg.Console.APIBaseURL), zap.String("user", who.Email))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	voter.Close()
	logger.Info("console stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
