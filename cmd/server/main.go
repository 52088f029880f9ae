package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-room-reservation/internal/config"
	"github.com/iliyamo/hotel-room-reservation/internal/database"
	"github.com/iliyamo/hotel-room-reservation/internal/handler"
	"github.com/iliyamo/hotel-room-reservation/internal/logger"
	"github.com/iliyamo/hotel-room-reservation/internal/middleware"
	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/queue"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
	"github.com/iliyamo/hotel-room-reservation/internal/repository/memory"
	"github.com/iliyamo/hotel-room-reservation/internal/router"
	"github.com/iliyamo/hotel-room-reservation/internal/service"
)

// stores are the persistence collaborators of the services.
type stores struct {
	rooms    service.RoomDirectory
	bookings service.BookingStore
	users    service.IdentityStore
	tokens   service.TokenStore
	close    func() error
}

func main() {
	_ = godotenv.Load() // .env is optional

	cfg := config.Load()
	log := logger.Init(cfg.Env, cfg.LogLevel)

	st, err := openStores(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open store")
	}
	defer func() { _ = st.close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.RabbitURL, log)
		defer func() { _ = pub.Close() }()
		events = pub
		go func() {
			if err := queue.NewConsumer(cfg.RabbitURL, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("booking consumer stopped")
			}
		}()
	}

	sessions := service.NewSessionService(service.SessionDeps{
		Config: service.SessionConfig{
			Secret:     cfg.JWTSecret,
			Issuer:     cfg.JWTIssuer,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
			BcryptCost: cfg.BcryptCost,
		},
		Users:  st.users,
		Tokens: st.tokens,
		Log:    log,
	})
	bookings := service.NewBookingService(service.BookingDeps{
		Rooms:    st.rooms,
		Bookings: st.bookings,
		Events:   events,
		Log:      log,
	})
	availability := service.NewAvailabilityChecker(st.rooms, st.bookings)

	if cfg.SeedAdmin() {
		seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := sessions.SeedAdmin(seedCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("failed to seed administrator")
		}
		cancel()
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig(), log)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	e := echo.New()
	e.HideBanner = true
	router.Use(e, log)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(sessions, log), sessions,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	router.RegisterRooms(e, handler.NewRoomHandler(availability, log),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterBookings(e, handler.NewBookingHandler(bookings, availability, log), sessions)

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("driver", cfg.DBDriver).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("stopped")
}

// openStores builds the configured store.  MySQL migrations run first when
// DB_MIGRATE is set.
func openStores(cfg config.Config, log zerolog.Logger) (stores, error) {
	if cfg.DBDriver == config.DriverMemory {
		m := memory.New()
		if cfg.Env == "dev" {
			seedDemoRooms(m)
		}
		log.Warn().Msg("using in-memory store; data is lost on exit")
		return stores{
			rooms:    m.Rooms(),
			bookings: m.Bookings(),
			users:    m.Users(),
			tokens:   m.Tokens(),
			close:    func() error { return nil },
		}, nil
	}

	opts := database.Options{User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName}
	if cfg.DBMigrate {
		if err := database.Migrate(opts, log); err != nil {
			return stores{}, err
		}
	}
	db, err := database.Open(opts)
	if err != nil {
		return stores{}, err
	}
	return stores{
		rooms:    repository.NewRoomRepo(db),
		bookings: repository.NewBookingRepo(db),
		users:    repository.NewUserRepo(db),
		tokens:   repository.NewTokenRepo(db),
		close:    db.Close,
	}, nil
}

// seedDemoRooms gives a dev server on the memory store something to book.
func seedDemoRooms(m *memory.Store) {
	m.AddCategory(model.Category{ID: "standard", Name: "Standard", MaxPeople: 2})
	m.AddCategory(model.Category{ID: "suite", Name: "Suite", MaxPeople: 4})
	now := time.Now().UTC()
	m.AddRoom(model.Room{ID: "room-101", CategoryID: "standard", Name: "101", Price: decimal.NewFromInt(100), Discount: decimal.Zero, Status: model.RoomAvailable, CreatedAt: now})
	m.AddRoom(model.Room{ID: "room-102", CategoryID: "standard", Name: "102", Price: decimal.NewFromInt(100), Discount: decimal.NewFromInt(10), Status: model.RoomAvailable, CreatedAt: now})
	m.AddRoom(model.Room{ID: "room-201", CategoryID: "suite", Name: "201", Price: decimal.NewFromInt(250), Discount: decimal.Zero, Status: model.RoomAvailable, CreatedAt: now})
}
