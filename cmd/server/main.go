package main // Entry point package

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ticketboss/reservation-api/internal/config"
	"github.com/ticketboss/reservation-api/internal/database"
	"github.com/ticketboss/reservation-api/internal/handler"
	"github.com/ticketboss/reservation-api/internal/queue"
	"github.com/ticketboss/reservation-api/internal/repository"
	"github.com/ticketboss/reservation-api/internal/router"
	"github.com/ticketboss/reservation-api/internal/service"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.WithError(err).Fatal("schema setup failed")
	}

	eventRepo := repository.NewEventRepo(db)
	reservationRepo := repository.NewReservationRepo(db)

	// Exactly one event row must exist before any reservation call runs.
	// Seeding is idempotent: an already-present row is left untouched.
	seeded, err := eventRepo.Seed(ctx, cfg.EventID, cfg.EventName, cfg.EventTotalSeats)
	if err != nil {
		log.WithError(err).Fatal("event seed failed")
	}
	if seeded {
		log.WithFields(logrus.Fields{
			"event_id":    cfg.EventID,
			"total_seats": cfg.EventTotalSeats,
		}).Info("seed data: event initialized")
	}

	brokerURL := queue.BrokerURL()
	publisher := queue.NewPublisher(brokerURL, log)
	go queue.StartAuditConsumer(brokerURL, log)

	svc := service.NewReservationService(cfg.EventID, eventRepo, reservationRepo, publisher, log)
	h := handler.NewReservationHandler(svc)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: rate limiting and summary cache disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	router.RegisterRoutes(e, h, rdb)

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
