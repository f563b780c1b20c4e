package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/ratelimit"
)

// Deps are the collaborators the API is built from.
type Deps struct {
	DB          *sql.DB
	Coordinator *lifecycle.Coordinator
	JWTSecret   string

	// Limiters guarding the unauthenticated entry points.
	RegisterLimiter *ratelimit.Limiter
	LoginLimiter    *ratelimit.Limiter
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d.DB, JWTSecret: d.JWTSecret}
	usersHandler := &UsersHandler{DB: d.DB, Coordinator: d.Coordinator}
	itemsHandler := &ItemsHandler{DB: d.DB, Coordinator: d.Coordinator}
	claimsHandler := &ClaimsHandler{Coordinator: d.Coordinator}
	statsHandler := &StatisticsHandler{DB: d.DB}

	authMW := AuthMiddleware(&auth.Guard{DB: d.DB, Secret: d.JWTSecret})
	registerLimit := RateLimit(d.RegisterLimiter)
	loginLimit := RateLimit(d.LoginLimiter)

	// Public, rate limited.
	mux.Handle("POST /api/auth/register", registerLimit(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", loginLimit(http.HandlerFunc(authHandler.Login)))

	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users.
	mux.Handle("GET /api/users", authMW(http.HandlerFunc(usersHandler.List)))
	mux.Handle("GET /api/users/{id}", authMW(http.HandlerFunc(usersHandler.Get)))
	mux.Handle("PUT /api/users/{id}", authMW(http.HandlerFunc(usersHandler.Update)))
	mux.Handle("DELETE /api/users/{id}", authMW(http.HandlerFunc(usersHandler.Delete)))

	// Items: read (public), write (owner).
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("GET /api/items/{id}/image", itemsHandler.GetImage)
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("PUT /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.UploadImage)))

	// Claims.
	mux.Handle("GET /api/claims", authMW(http.HandlerFunc(claimsHandler.List)))
	mux.Handle("POST /api/claims", authMW(http.HandlerFunc(claimsHandler.Create)))
	mux.Handle("GET /api/claims/{id}", authMW(http.HandlerFunc(claimsHandler.Get)))
	mux.Handle("PUT /api/claims/{id}", authMW(http.HandlerFunc(claimsHandler.Update)))
	mux.Handle("DELETE /api/claims/{id}", authMW(http.HandlerFunc(claimsHandler.Delete)))

	mux.HandleFunc("GET /api/statistics", statsHandler.Get)

	return mux
}
