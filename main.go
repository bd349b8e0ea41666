// Entry point of the board service. It loads configuration, connects to
// PostgreSQL, runs migrations, wires the services and handlers together,
// sets up the chi router with its middleware stack, and starts the HTTP
// server with graceful shutdown.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/board-go/apperror"
	"github.com/user/board-go/auth"
	"github.com/user/board-go/config"
	"github.com/user/board-go/db"
	"github.com/user/board-go/httpx"
	"github.com/user/board-go/posts"
	"github.com/user/board-go/replies"
	"github.com/user/board-go/users"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := db.NewPool(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.DB, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	tokens := auth.NewTokenService(*cfg.Auth)

	// Manual dependency injection: stores over the shared pool, services
	// over the stores, handlers over the services.
	userStore := users.NewPgStore(pool)
	userService := users.NewService(userStore, tokens)
	userHandlers := users.NewHandlers(userService)

	postStore := posts.NewPgStore(pool)
	postService := posts.NewService(postStore, userStore)
	postHandlers := posts.NewHandlers(postService)

	replyStore := replies.NewPgStore(pool)
	replyService := replies.NewService(replyStore, userStore)
	replyHandlers := replies.NewHandlers(replyService)

	r := chi.NewRouter()

	// Chi requires all middleware to be registered before any routes.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Panics inside handlers surface as a JSON 500 instead of an empty body.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				if rvr := recover(); rvr != nil {
					log.Printf("Panic: %+v", rvr)
					httpx.WriteError(ww, apperror.NewInternalError("internal server error", nil))
				}
			}()
			next.ServeHTTP(ww, r)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Token resolution runs on every API route; requests without a
		// bearer token pass through and are stopped by RequireAuth where
		// the route demands a principal.
		r.Use(auth.Middleware(tokens, userService))

		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandlers.HandleSignUp())
			r.Post("/authenticate", userHandlers.HandleAuthenticate())

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth)

				r.Get("/", userHandlers.HandleGetUsers())
				r.Get("/{username}", userHandlers.HandleGetUser())
				r.Patch("/{username}", userHandlers.HandleUpdateUser())
				r.Post("/{username}/follows", userHandlers.HandleFollow())
				r.Delete("/{username}/follows", userHandlers.HandleUnfollow())
				r.Get("/{username}/followers", userHandlers.HandleGetFollowers())
				r.Get("/{username}/followings", userHandlers.HandleGetFollowings())
				r.Get("/{username}/liked-users", userHandlers.HandleGetLikedUsersByUser())
				r.Get("/{username}/posts", postHandlers.HandleGetPostsByUsername())
				r.Get("/{username}/replies", replyHandlers.HandleGetRepliesByUsername())
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Get("/", postHandlers.HandleGetPosts())
			r.Post("/", postHandlers.HandleCreatePost())
			r.Get("/{postId}", postHandlers.HandleGetPost())
			r.Patch("/{postId}", postHandlers.HandleUpdatePost())
			r.Delete("/{postId}", postHandlers.HandleDeletePost())
			r.Post("/{postId}/likes", postHandlers.HandleToggleLike())
			r.Get("/{postId}/liked-users", userHandlers.HandleGetLikedUsersByPost())

			r.Route("/{postId}/replies", func(r chi.Router) {
				r.Get("/", replyHandlers.HandleGetReplies())
				r.Post("/", replyHandlers.HandleCreateReply())
				r.Patch("/{replyId}", replyHandlers.HandleUpdateReply())
				r.Delete("/{replyId}", replyHandlers.HandleDeleteReply())
			})
		})
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
