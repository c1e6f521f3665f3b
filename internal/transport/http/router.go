package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"forumhub/internal/handler"
	"forumhub/internal/httputil"
	authmw "forumhub/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler       *handler.AuthHandler
	UserHandler       *handler.UserHandler
	FollowHandler     *handler.FollowHandler
	DiscussionHandler *handler.DiscussionHandler
	CommentHandler    *handler.CommentHandler
	FeedHandler       *handler.FeedHandler
	JWTSecret         string
	// Quiet drops the request logger. Tests set it.
	Quiet bool
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	if !cfg.Quiet {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	requireAuth := authmw.AuthMiddleware(cfg.JWTSecret)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			// Public
			r.Post("/signup", cfg.AuthHandler.Signup)
			r.Post("/login", cfg.AuthHandler.Login)
			r.Post("/refresh", cfg.AuthHandler.Refresh)
			r.Get("/", cfg.UserHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)

				r.Post("/logout", cfg.AuthHandler.Logout)
				r.Post("/logout-all", cfg.AuthHandler.LogoutAll)

				r.Get("/profile", cfg.UserHandler.Me)
				r.Get("/search/{name}", cfg.UserHandler.Search)

				r.Put("/follow/{id}", cfg.FollowHandler.Follow)
				r.Put("/unfollow/{id}", cfg.FollowHandler.Unfollow)

				r.Get("/{id}", cfg.UserHandler.GetProfile)
				r.Put("/{id}", cfg.UserHandler.Update)
				r.Delete("/{id}", cfg.UserHandler.Delete)
				r.Get("/{id}/followers", cfg.FollowHandler.GetFollowers)
				r.Get("/{id}/following", cfg.FollowHandler.GetFollowing)
			})
		})

		r.Route("/discussions", func(r chi.Router) {
			// Public
			r.Get("/", cfg.DiscussionHandler.List)
			r.Get("/tag/{tag}", cfg.DiscussionHandler.ListByTag)
			r.Get("/text/{text}", cfg.DiscussionHandler.ListByText)
			r.Put("/view/{id}", cfg.DiscussionHandler.View)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)

				r.Get("/feed", cfg.FeedHandler.GetFeed)

				r.Post("/", cfg.DiscussionHandler.Create)
				r.Put("/{id}", cfg.DiscussionHandler.Update)
				r.Delete("/{id}", cfg.DiscussionHandler.Delete)

				r.Put("/like/{id}", cfg.DiscussionHandler.Like)
				r.Put("/unlike/{id}", cfg.DiscussionHandler.Unlike)

				r.Post("/comment/{id}", cfg.CommentHandler.Add)
				r.Put("/comment/{id}/{comment_id}", cfg.CommentHandler.Edit)
				r.Delete("/comment/{id}/{comment_id}", cfg.CommentHandler.Delete)
				r.Put("/comment/like/{id}/{comment_id}", cfg.CommentHandler.Like)
				r.Put("/comment/unlike/{id}/{comment_id}", cfg.CommentHandler.Unlike)
			})

			r.Get("/{id}", cfg.DiscussionHandler.GetByID)
		})
	})

	return r
}
