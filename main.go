// Package main rentloop API.
//
// @title           rentloop API
// @version         1.0
// @description     Peer-to-peer rental marketplace (items, bundles, bookings, wallet).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"rentloop/app/echoServer"
	authctrl "rentloop/app/echoServer/controller/auth"
	bookingctrl "rentloop/app/echoServer/controller/booking"
	bundlectrl "rentloop/app/echoServer/controller/bundle"
	itemctrl "rentloop/app/echoServer/controller/item"
	paymentctrl "rentloop/app/echoServer/controller/payment"
	reviewctrl "rentloop/app/echoServer/controller/review"
	walletctrl "rentloop/app/echoServer/controller/wallet"
	"rentloop/app/echoServer/validation"
	"rentloop/config"
	authrepo "rentloop/repository/auth"
	bookingrepo "rentloop/repository/booking"
	bundlerepo "rentloop/repository/bundle"
	geocoderepo "rentloop/repository/geocode"
	itemrepo "rentloop/repository/item"
	paymentrepo "rentloop/repository/payment"
	reviewrepo "rentloop/repository/review"
	userrepo "rentloop/repository/user"
	walletrepo "rentloop/repository/wallet"
	authsvc "rentloop/service/auth"
	bookingsvc "rentloop/service/booking"
	bundlesvc "rentloop/service/bundle"
	itemsvc "rentloop/service/item"
	paymentsvc "rentloop/service/payment"
	reviewsvc "rentloop/service/review"
	walletsvc "rentloop/service/wallet"
	"rentloop/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	txr := database.NewRunner(db)

	// geocoder, optional redis cache in front
	var resolver geocoderepo.AddressResolver
	if cfg.GoogleMapsKey != "" {
		resolver, err = geocoderepo.NewGoogle(cfg.GoogleMapsKey)
		if err != nil {
			log.Error("maps client init failed", "err", err)
			os.Exit(1)
		}
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				log.Error("redis url invalid", "err", err)
				os.Exit(1)
			}
			resolver = geocoderepo.WithCache(resolver, redis.NewClient(opt))
		}
	} else {
		log.Warn("GOOGLE_MAPS_API_KEY not set, listings must carry explicit coordinates")
	}

	// repos
	ar := authrepo.New(db)
	ur := userrepo.New(db)
	ir := itemrepo.New(db)
	bur := bundlerepo.New(db)
	br := bookingrepo.New(db)
	wr := walletrepo.New(db)
	rr := reviewrepo.New(db)

	var gateway paymentrepo.Repo
	if cfg.StripeSecretKey != "" {
		gateway = paymentrepo.NewStripe(cfg.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, deposit holds disabled")
	}

	// services
	as := authsvc.New(txr, ar, wr, cfg.JWTSecret)
	ws := walletsvc.New(txr, wr)
	is := itemsvc.New(ir, resolver)
	bus := bundlesvc.New(txr, bur, ir)
	bs := bookingsvc.New(txr, ir, bur, br, ur, ws)
	rs := reviewsvc.New(txr, rr, br, ir, bur, ur)
	ps := paymentsvc.New(gateway, br)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	itemC := &itemctrl.Controller{Svc: is, V: v, Log: log}
	bundleC := &bundlectrl.Controller{Svc: bus, V: v, Log: log}
	bookingC := &bookingctrl.Controller{Svc: bs, V: v, Log: log}
	walletC := &walletctrl.Controller{Svc: ws, V: v, Log: log}
	reviewC := &reviewctrl.Controller{Svc: rs, V: v, Log: log}
	paymentC := &paymentctrl.Controller{Svc: ps, Log: log}

	// expired pending bookings sweeper
	cleaner := bookingsvc.NewCleaner(txr, br, ws)
	go func() {
		t := time.NewTicker(10 * time.Minute)
		defer t.Stop()
		for range t.C {
			n, err := cleaner.ReleaseExpired(ctx)
			if err != nil {
				log.Error("booking sweep failed", "err", err)
				continue
			}
			if n > 0 {
				log.Info("expired pending bookings cancelled", "count", n)
			}
		}
	}()

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:    authC,
		Item:    itemC,
		Bundle:  bundleC,
		Booking: bookingC,
		Wallet:  walletC,
		Review:  reviewC,
		Payment: paymentC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	slog.Info("starting server", "env", cfg.Env, "port", port)

	e.Logger.Fatal(e.Start(":" + port))
}
