package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"parttracker/config"
	"parttracker/engine"
	"parttracker/messaging"
	"parttracker/prodcache"
	"parttracker/store"
	"parttracker/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "parttracker.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("parttracker", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("parttracker: database open (%s)", cfg.Database.Driver)

	// Redis progress cache
	var cache prodcache.Cache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("parttracker: redis not available (%v), running without cache", err)
		} else {
			log.Printf("parttracker: redis connected (%s)", cfg.Redis.Address)
			cache = prodcache.NewRedisStore(redisClient)
		}
		cancel()
		defer redisClient.Close()
	}

	// Messaging client
	var msgClient *messaging.Client
	if cfg.Messaging.Enabled {
		msgClient = messaging.NewClient(&cfg.Messaging)
		if err := msgClient.Connect(); err != nil {
			log.Printf("parttracker: messaging connect failed (%v)", err)
		} else {
			log.Printf("parttracker: messaging connected (%s)", cfg.Messaging.Backend)
		}
		defer msgClient.Close()
	}

	// Engine
	eng := engine.New(engine.Config{
		AppConfig: cfg,
		DB:        db,
		MsgClient: msgClient,
	})
	progress := prodcache.NewManager(eng.Tracking(), cache, cfg.Redis.ProgressTTL)
	eng.SetProgress(progress)
	progress.Flush()
	eng.Start()
	defer eng.Stop()

	// Outbox drainer (part events to downstream systems)
	if msgClient != nil {
		drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
		drainer.Start()
		defer drainer.Stop()
	}

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("parttracker: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("parttracker: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("parttracker: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("parttracker: stopped")
}
