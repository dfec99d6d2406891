package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"

	"github.com/arenaone/arena/handlers"
	"github.com/arenaone/arena/middleware"
)

// Handlers собирает все HTTP-обработчики приложения для маршрутизации.
type Handlers struct {
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Team         *handlers.TeamHandler
	Game         *handlers.GameHandler
	Tournament   *handlers.TournamentHandler
	Match        *handlers.MatchHandler
	Dispute      *handlers.DisputeHandler
	Payment      *handlers.PaymentHandler
	Notification *handlers.NotificationHandler
	WebSocket    *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Auth.SignUp)
		r.Post("/login", h.Auth.Login)
		r.Post("/refresh", h.Auth.Refresh)
		r.Post("/logout", h.Auth.Logout)
	})

	router.Route("/users", func(r chi.Router) {
		// Публичные маршруты для просмотра профилей
		r.Get("/", h.User.List)
		r.Get("/{userID}", h.User.GetByID)
		r.Get("/{userID}/ratings", h.User.GetRatings)
		r.Get("/{userID}/matches", h.Match.ListByUser)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Put("/{userID}", h.User.UpdateProfile)
			r.Post("/{userID}/avatar", h.User.UploadAvatar)
			r.Delete("/{userID}", h.User.Delete)
			r.Get("/{userID}/transactions", h.User.ListTransactions)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Get("/", h.Team.List)
		r.Get("/{teamID}", h.Team.GetByID)
		r.Get("/{teamID}/matches", h.Match.ListByTeam)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", h.Team.Create)
			r.Put("/{teamID}", h.Team.Rename)
			r.Delete("/{teamID}", h.Team.Delete)
			r.Post("/{teamID}/members/{userID}", h.Team.AddMember)
			r.Delete("/{teamID}/members/{userID}", h.Team.RemoveMember)
			r.Post("/{teamID}/captain/{userID}", h.Team.TransferCaptaincy)
		})
	})

	router.Route("/games", func(r chi.Router) {
		r.Get("/", h.Game.List)
		r.Get("/{gameID}", h.Game.GetByID)

		// Справочник игр правят только администраторы
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireAdmin)

			r.Post("/", h.Game.Create)
			r.Put("/{gameID}", h.Game.Update)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра турниров
		r.Get("/", h.Tournament.List)
		r.Get("/{tournamentID}", h.Tournament.GetByID)
		r.Get("/{tournamentID}/registrations", h.Tournament.ListRegistrations)
		r.Get("/{tournamentID}/brackets", h.Tournament.ListBrackets)
		r.Get("/{tournamentID}/brackets/{bracketID}", h.Tournament.GetBracket)
		r.Get("/{tournamentID}/matches", h.Match.ListByTournament)
		r.Get("/{tournamentID}/ws", h.WebSocket.SubscribeTournament)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", h.Tournament.Create)
			r.Put("/{tournamentID}", h.Tournament.Update)
			r.Post("/{tournamentID}/close-registration", h.Tournament.CloseRegistration)
			r.Post("/{tournamentID}/cancel", h.Tournament.Cancel)
			r.Delete("/{tournamentID}", h.Tournament.Delete)

			r.Post("/{tournamentID}/register", h.Tournament.Register)
			r.Delete("/{tournamentID}/register", h.Tournament.CancelRegistration)
			r.Post("/{tournamentID}/check-in", h.Tournament.CheckIn)

			r.Post("/{tournamentID}/brackets", h.Tournament.GenerateBracket)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{matchID}/result", h.Match.ReportResult)
			r.Put("/{matchID}/lobby", h.Match.SetLobby)
			r.Post("/{matchID}/lobby/publish", h.Match.PublishLobby)
			r.Post("/{matchID}/start", h.Match.StartMatch)
		})
	})

	router.Route("/disputes", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", h.Dispute.Create)
		r.Get("/{disputeID}", h.Dispute.GetByID)
		r.Post("/{disputeID}/evidence", h.Dispute.AddEvidence)
		r.Post("/{disputeID}/comments", h.Dispute.AddComment)

		// Очередь и вердикты только для персонала поддержки
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireStaff)

			r.Get("/", h.Dispute.ListByStatus)
			r.Post("/{disputeID}/review", h.Dispute.TakeUnderReview)
			r.Post("/{disputeID}/resolve", h.Dispute.Resolve)
		})
	})

	router.Route("/payments", func(r chi.Router) {
		// Callback шлюза приходит без авторизации
		r.Get("/verify", h.Payment.VerifyCharge)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/charge", h.Payment.InitiateCharge)
		})
	})

	router.Route("/notifications", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/", h.Notification.List)
		r.Get("/unread", h.Notification.CountUnread)
		r.Post("/{notificationID}/read", h.Notification.MarkRead)
		r.Post("/read-all", h.Notification.MarkAllRead)
	})

	return router
}
