package echoServer

import (
	"net/http"

	"rentloop/app/echoServer/controller/auth"
	"rentloop/app/echoServer/controller/booking"
	"rentloop/app/echoServer/controller/bundle"
	"rentloop/app/echoServer/controller/item"
	"rentloop/app/echoServer/controller/payment"
	"rentloop/app/echoServer/controller/review"
	"rentloop/app/echoServer/controller/wallet"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Auth      *auth.Controller
	Item      *item.Controller
	Bundle    *bundle.Controller
	Booking   *booking.Controller
	Wallet    *wallet.Controller
	Review    *review.Controller
	Payment   *payment.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	pub.GET("/items/search", c.Item.Search)
	pub.GET("/items/:id", c.Item.Detail)
	pub.GET("/items/:id/reviews", c.Review.ForItem)
	pub.GET("/bundles", c.Bundle.List)
	pub.GET("/bundles/:id", c.Bundle.Detail)
	pub.GET("/users/:id/reviews", c.Review.ForUser)

	// Auth
	authg := e.Group("/v1")
	authg.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(c.JWTSecret),

		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	// JWT claims -> user_id extraction
	authg.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tokenObj := ctx.Get("user")
			if tokenObj == nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			claims, ok := tokenObj.(jwt.MapClaims)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			sub, ok := claims["sub"].(float64)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", int64(sub))
			return next(ctx)
		}
	})

	// Items
	authg.POST("/items", c.Item.Create)
	authg.PUT("/items/:id", c.Item.Update)
	authg.DELETE("/items/:id", c.Item.Delete)
	authg.PATCH("/items/:id/availability", c.Item.SetAvailability)

	// Bundles
	authg.POST("/bundles", c.Bundle.Create)

	// Bookings
	authg.POST("/bookings", c.Booking.Create)
	authg.GET("/bookings/my", c.Booking.My)
	authg.GET("/bookings/code/:code", c.Booking.ByCode)
	authg.GET("/bookings/:id", c.Booking.Detail)
	authg.POST("/bookings/:id/accept", c.Booking.Accept)
	authg.POST("/bookings/:id/reject", c.Booking.Reject)
	authg.POST("/bookings/:id/activate", c.Booking.Activate)
	authg.POST("/bookings/:id/complete", c.Booking.Complete)
	authg.POST("/bookings/:id/dispute", c.Booking.Dispute)
	authg.POST("/bookings/:id/deposit-intent", c.Payment.DepositIntent)

	// Wallet
	authg.GET("/wallet", c.Wallet.Overview)
	authg.GET("/wallet/ledger", c.Wallet.Ledger)
	authg.POST("/wallet/redeem", c.Wallet.Redeem)

	// Reviews
	authg.POST("/reviews", c.Review.Create)
}
