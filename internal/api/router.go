package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func NewRouter(apiHandler *APIHandler, logger *logrus.Logger, gatherer prometheus.Gatherer, uploadDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/", apiHandler.RootHandler)
	r.Get("/health", apiHandler.HealthHandler)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Handle(uploadsPath+"/*", http.StripPrefix(uploadsPath, http.FileServer(http.Dir(uploadDir))))

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/chat", apiHandler.ChatHandler)
		r.Post("/ai/chat", apiHandler.VoiceChatHandler)
		r.Post("/upload/image", apiHandler.UploadImageHandler)
		r.Post("/upload/document", apiHandler.UploadDocumentHandler)
		r.Get("/history", apiHandler.HistoryHandler)
		r.Delete("/history", apiHandler.ClearHistoryHandler)
		r.Post("/cache/clear", apiHandler.ClearCacheHandler)
		r.Get("/learned", apiHandler.ListLearnedHandler)
		r.Delete("/learned/{question}", apiHandler.DeleteLearnedHandler)
		r.Get("/ai-profile", apiHandler.GetProfileHandler)

		r.Post("/auth/register", apiHandler.RegisterHandler)
		r.Post("/auth/login", apiHandler.LoginHandler)
		r.Post("/auth/forgot-password", apiHandler.ForgotPasswordHandler)
		r.Post("/auth/reset-password", apiHandler.ResetPasswordHandler)

		r.Get("/clones", apiHandler.ListClonesHandler)
		r.Get("/clones/name/{name}", apiHandler.GetCloneByNameHandler)
		r.Get("/clones/{cloneID}", apiHandler.GetCloneHandler)
		r.Post("/clones/{cloneID}/memory", apiHandler.AddMemoryHandler)
		r.Get("/clones/{cloneID}/stats", apiHandler.CloneStatsHandler)

		// Bearer-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)
			r.Get("/auth/me", apiHandler.MeHandler)

			// Superadmin routes
			r.Group(func(r chi.Router) {
				r.Use(apiHandler.RequireSuperadmin)

				r.Put("/ai-profile", apiHandler.UpdateProfileHandler)
				r.Get("/admin/user-queries/{username}", apiHandler.UserQueriesHandler)
				r.Get("/admin/all-queries", apiHandler.AllQueriesHandler)

				r.Post("/clones/create", apiHandler.CreateCloneHandler)
				r.Put("/clones/{cloneID}", apiHandler.UpdateCloneHandler)
				r.Delete("/clones/{cloneID}", apiHandler.DeleteCloneHandler)

				r.Post("/users/register", apiHandler.CreateUserHandler)
				r.Get("/users", apiHandler.ListUsersHandler)
				r.Get("/users/{userID}", apiHandler.GetUserHandler)
				r.Put("/users/{userID}", apiHandler.UpdateUserHandler)
				r.Delete("/users/{userID}", apiHandler.DeleteUserHandler)
				r.Put("/users/{userID}/role", apiHandler.SetUserRoleHandler)
				r.Put("/users/{userID}/toggle-status", apiHandler.ToggleUserStatusHandler)
			})
		})
	})

	return r
}
