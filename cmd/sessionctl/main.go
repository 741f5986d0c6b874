// sessionctl drives the session lifecycle from the command line for local
// testing: establish a session for a user, validate a presented hash, rotate
// an expired credential, or revoke one.
//
// Usage:
//
//	sessionctl establish <user-id>
//	sessionctl validate <access-hash>
//	sessionctl rotate <access-hash>
//	sessionctl revoke <access-hash>
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"sessioncore/internal/config"
	"sessioncore/internal/db"
	"sessioncore/internal/security"
	"sessioncore/internal/session/repository"
	"sessioncore/internal/session/service"
	"sessioncore/internal/telemetry"
	"sessioncore/internal/telemetry/otel"
	"sessioncore/internal/token"
	userrepo "sessioncore/internal/user/repository"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: sessionctl establish|validate|rotate|revoke <arg>")
		os.Exit(2)
	}
	command, arg := os.Args[1], os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "sessioncore", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	codec, err := buildCodec(cfg)
	if err != nil {
		log.Fatalf("codec: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	var store repository.Repository
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		store = repository.NewRedisRepository(client)
	} else {
		store = repository.NewPostgresRepository(conn)
	}

	metrics, err := telemetry.NewMetrics(providers.MeterProvider.Meter("sessioncore"))
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}
	emitter := otel.NewEventEmitter(providers.LoggerProvider)

	directory := userrepo.NewPostgresDirectory(conn)
	svc, err := service.NewService(
		store,
		directory,
		codec,
		cfg.AccessTTL(),
		cfg.RefreshTTL(),
		emitter,
		metrics,
	)
	if err != nil {
		log.Fatalf("service: %v", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch command {
	case "establish":
		rec, err := svc.Establish(callCtx, arg)
		if err != nil {
			log.Fatalf("establish: %v", err)
		}
		fmt.Printf("credential: %s\n", rec.AccessTokenHash)
		fmt.Printf("access expiry: %s\n", rec.AccessExpiry.Format(time.RFC3339))
		fmt.Printf("refresh expiry: %s\n", rec.RefreshExpiry.Format(time.RFC3339))
	case "validate":
		userID, err := svc.Validate(callCtx, arg)
		if err != nil {
			log.Fatalf("validate: %v", err)
		}
		fmt.Printf("user: %s\n", userID)
		if u, err := directory.GetByID(callCtx, userID); err == nil && u != nil {
			fmt.Printf("email: %s\n", u.Email)
		}
	case "rotate":
		newHash, err := svc.Rotate(callCtx, arg)
		if err != nil {
			log.Fatalf("rotate: %v", err)
		}
		fmt.Printf("credential: %s\n", newHash)
	case "revoke":
		if err := svc.Revoke(callCtx, arg); err != nil {
			log.Fatalf("revoke: %v", err)
		}
		fmt.Println("revoked")
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		os.Exit(2)
	}
}

func buildCodec(cfg *config.Config) (*token.Codec, error) {
	if cfg.TokenPrivateKey != "" && cfg.TokenPublicKey != "" {
		priv, err := security.ParsePrivateKey(cfg.TokenPrivateKey)
		if err != nil {
			return nil, err
		}
		pub, err := security.ParsePublicKey(cfg.TokenPublicKey)
		if err != nil {
			return nil, err
		}
		return token.NewKeyPairCodec(priv, pub, cfg.TokenIssuer, cfg.TokenAudience)
	}
	return token.NewHMACCodec([]byte(cfg.TokenSecret), cfg.TokenIssuer, cfg.TokenAudience)
}
