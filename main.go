package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"storefront/config"
	"storefront/events"
	"storefront/handlers"
	"storefront/identity"
	"storefront/logger"
	"storefront/metrics"
	"storefront/repository"
	"storefront/services"
)

var db *sql.DB
var rdb *redis.Client

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	initDB(cfg, log)
	defer db.Close()
	defer rdb.Close()

	ctx := context.Background()
	uR, err := repository.NewUserRepository(db, log)
	if err != nil {
		log.Fatal("user repository", "error", err)
	}
	pR, err := repository.NewProductRepository(db, log)
	if err != nil {
		log.Fatal("product repository", "error", err)
	}
	cR, err := repository.NewCategoryRepository(db, log)
	if err != nil {
		log.Fatal("category repository", "error", err)
	}
	oR, err := repository.NewOrderRepository(db, log)
	if err != nil {
		log.Fatal("order repository", "error", err)
	}
	aR, err := repository.NewAddressRepository(db, log)
	if err != nil {
		log.Fatal("address repository", "error", err)
	}
	rR, err := repository.NewReviewRepository(db, log)
	if err != nil {
		log.Fatal("review repository", "error", err)
	}
	sR, err := repository.NewSessionRepository(ctx, rdb, cfg.SessionTTL, log)
	if err != nil {
		log.Fatal("session repository", "error", err)
	}
	log.Info("db connected", "driver", cfg.DatabaseDriver)
	log.Info("redis connected", "addr", cfg.RedisAddr)

	tx := repository.NewTransactor(db)
	pub := events.NewRedisPublisher(rdb)
	reg := metrics.NewRegistry()
	tokens := identity.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)

	products := services.NewProductService(pR, cR, rR, uR, tx, log)
	categories := services.NewCategoryService(cR, log)
	orders := services.NewOrderService(oR, pR, aR, uR, tx, pub, reg, log)
	rating := services.NewRatingService(rR, pR, pub, reg, log)
	limiter := handlers.NewRateLimiter(cfg.SignInRatePerMin)

	hp := handlers.HandlerParams{
		UsrService:    services.NewUserService(uR, sR, oR, rR, aR, tx, &orders, &rating, tokens, log),
		PrdService:    products,
		CatsService:   categories,
		OrdService:    orders,
		RevService:    services.NewReviewService(rR, pR, uR, &rating, log),
		SearchService: services.NewSearchService(&products, &categories, &orders, cR),
		Resolver:      identity.NewResolver(sR, tokens, log),
		Limiter:       limiter,
		Logger:        log,
		SessionTTL:    cfg.SessionTTL,
		SecureCookie:  cfg.SecureCookie,
	}
	ha := handlers.NewHandler(hp)

	router := mux.NewRouter()
	router.Use(reg.Middleware)
	router.Handle("/metrics", reg.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	ha.Register(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup(3 * time.Minute)
			case <-stop:
				return
			}
		}
	}()

	go func() {
		log.Info("starting server", "addr", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(stop)

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}

func initDB(cfg config.Config, log *logger.Logger) {
	var err error
	db, err = sql.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}
	if cfg.DatabaseDriver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	ctx, cncl := context.WithTimeout(context.Background(), 5*time.Second)
	defer cncl()
	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatal("migration failed", "error", err)
	}

	rdb = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if status := rdb.Ping(ctx); status.Err() != nil {
		panic("redis is not working: " + status.Err().Error())
	}
}
