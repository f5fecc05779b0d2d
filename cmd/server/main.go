package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"pasmi/terminal/internal/cache"
	"pasmi/terminal/internal/config"
	"pasmi/terminal/internal/events"
	"pasmi/terminal/internal/gateway"
	"pasmi/terminal/internal/httpapi"
	"pasmi/terminal/internal/media"
	"pasmi/terminal/internal/service"
	"pasmi/terminal/internal/store"
	"pasmi/terminal/internal/store/memory"
	pgstore "pasmi/terminal/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	config.SetLogLevel(cfg.LogLevel)
	logger := config.GetLogger()
	gin.SetMode(gin.ReleaseMode)

	if err := validateSecurityConfig(cfg); err != nil {
		logger.WithError(err).Fatal("invalid security configuration")
	}
	if cfg.APIURL == "" {
		logger.Warn("POS_API_URL is not set; every sheet call will fail until it is configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var state store.StateStore
	closers := make([]func() error, 0, 4)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory state")
		}
		state = pg
		closers = append(closers, pg.Close)
		logger.Info("state store: postgres")
	} else {
		state = memory.New()
		logger.Info("state store: in-memory")
	}

	reportsCache := cache.ReportsCache(cache.NoopReportsCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReportsCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.WithError(err).Warn("redis unavailable, using noop cache")
		} else {
			reportsCache = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info("reports cache: redis")
		}
	} else {
		logger.Info("reports cache: noop")
	}

	publisher := events.Publisher(events.NoopPublisher{})
	if cfg.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(cfg.AMQPURL)
		if err != nil {
			logger.WithError(err).Warn("amqp unavailable, events are dropped")
		} else {
			publisher = amqpPub
			closers = append(closers, amqpPub.Close)
			logger.Info("events: amqp")
		}
	}

	gw := gateway.New(cfg.APIURL, time.Duration(cfg.GatewayTimeoutSeconds)*time.Second, logger)
	uploader := media.NewUploader(cfg.UploadURL, cfg.UploadPreset, logger)

	svc := service.New(gw, state, logger).
		WithReportsCache(reportsCache, time.Duration(cfg.ReportsCacheTTLSeconds)*time.Second).
		WithPublisher(publisher).
		WithUploader(uploader)
	closers = append([]func() error{svc.Close}, closers...)

	if err := svc.Load(ctx); err != nil {
		logger.WithError(err).Warn("initial load failed; the terminal starts with an empty catalog")
	}

	auth := httpapi.NewAuthManager(
		cfg.AuthSecret,
		time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
		cfg.OperatorUsername,
		cfg.OperatorPassword,
		cfg.AuthorizedEmails,
	)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.Address()).Info("terminal listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.WithError(err).Error("close error")
		}
	}

	logger.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if strings.TrimSpace(cfg.OperatorUsername) == "" {
		return fmt.Errorf("OPERATOR_USERNAME must not be empty")
	}
	if err := validatePasswordStrength(cfg.OperatorPassword); err != nil {
		return fmt.Errorf("OPERATOR_PASSWORD is too weak: %w", err)
	}
	return nil
}

// validatePasswordStrength rejects short passwords, a single repeated
// character and a list of common choices. Bcrypt hashes are accepted as is.
func validatePasswordStrength(password string) error {
	if strings.HasPrefix(password, "$2") {
		return nil
	}
	if len(password) < 10 {
		return fmt.Errorf("at least 10 characters required")
	}

	known := map[string]bool{
		"1234567890": true, "0123456789": true, "contraseña": true,
		"contrasena": true, "password123": true, "pasmi12345": true,
		"cafepasmi1": true, "qwertyuiop": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated-character password not allowed")
	}
	return nil
}
