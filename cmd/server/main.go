package main // Entry point package

import (
	"log"  // Logging library
	"time" // hold TTL conversion

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/timboisvert/cocoscout-sub005/internal/config"
	"github.com/timboisvert/cocoscout-sub005/internal/database"
	"github.com/timboisvert/cocoscout-sub005/internal/handler"
	"github.com/timboisvert/cocoscout-sub005/internal/lock"
	appmw "github.com/timboisvert/cocoscout-sub005/internal/middleware"
	"github.com/timboisvert/cocoscout-sub005/internal/queue"
	"github.com/timboisvert/cocoscout-sub005/internal/repository"
	"github.com/timboisvert/cocoscout-sub005/internal/router"
	"github.com/timboisvert/cocoscout-sub005/internal/signup"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db: %v", err)
	}

	// Redis backs slot holds and rate limiting; a nil client disables both.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis: unavailable, slot locking and rate limiting disabled")
	}
	locks := lock.New(rdb)

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	productions := repository.NewProductionRepo(db)
	events := repository.NewEventRepo(db)
	forms := repository.NewFormRepo(db)
	instances := repository.NewInstanceRepo(db)
	slots := repository.NewSlotRepo(db)
	regs := repository.NewRegistrationRepo(db)
	holdouts := repository.NewHoldoutRepo(db)

	// Engine services.
	prov := signup.NewProvisioner(db, events, instances, slots, regs, holdouts)
	resizer := signup.NewResizer(db, instances, slots, regs, holdouts)
	reconciler := signup.NewReconciler(db, events, instances, slots, regs, prov)

	notify := handler.QueueNotifier{}
	holdTTL := time.Duration(cfg.SlotHoldTTLSec) * time.Second

	// Handlers.
	authH := handler.NewAuthHandler(cfg, users, tokens, locks)
	prodH := handler.NewProductionHandler(productions)
	formH := handler.NewFormHandler(forms, productions, instances, holdouts, prov, resizer, reconciler, notify)
	eventChangesH := handler.NewEventChangesHandler(forms, productions, reconciler, notify)
	slotChangesH := handler.NewSlotChangesHandler(forms, productions, resizer, notify)
	statusH := handler.NewStatusHandler(forms, instances, slots, regs)
	claimH := handler.NewClaimHandler(forms, instances, slots, regs, locks, holdTTL)

	e := echo.New()
	e.Use(appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterOperator(e, prodH, formH, eventChangesH, slotChangesH, cfg.JWTSecret)
	router.RegisterPublic(e, statusH, claimH, cfg.JWTSecret)
	router.RegisterParticipant(e, claimH, cfg.JWTSecret)

	// Background consumer appends cancellation notices to logs/signup.log.
	go func() {
		if err := queue.StartCancellationConsumer(); err != nil {
			log.Printf("signup-consumer: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
