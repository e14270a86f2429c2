package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"gatherchat/internal/pkg/auth/jwt"
	"gatherchat/internal/pkg/errs"
	"gatherchat/internal/pkg/limiter"
	"gatherchat/internal/pkg/logx"
	"gatherchat/internal/pkg/resp"
)

const (
	SendRate     = 5
	SendBurst    = 20
	ConnectRate  = 0.5
	ConnectBurst = 10
	PresignRate  = 1
	PresignBurst = 5
	APIRate      = 20
	APIBurst     = 60
)

// perUser applies l keyed by the authenticated user id. It must run after RequireIdentity.
func perUser(l *limiter.KeyedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(jwt.UserID(r)) {
				resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Router sets up the main HTTP routing table (chi.Router) for the application.
// Rate limiter sweepers stop when ctx ends.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	sendLimiter := limiter.NewKeyedLimiter(ctx, rate.Limit(SendRate), SendBurst)
	connectLimiter := limiter.NewKeyedLimiter(ctx, rate.Limit(ConnectRate), ConnectBurst)
	presignLimiter := limiter.NewKeyedLimiter(ctx, rate.Limit(PresignRate), PresignBurst)
	apiLimiter := limiter.NewKeyedLimiter(ctx, rate.Limit(APIRate), APIBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "token"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":   "ok",
			"service":  "GatherChat",
			"online":   deps.Manager.Online(),
			"delivery": deps.Dispatcher.Stats(),
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Group(func(authed chi.Router) {
		authed.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))
		authed.Use(jwt.RequireIdentity)

		authed.Route("/api/messages", func(api chi.Router) {
			api.Use(apiLimiter.Middleware)

			api.Get("/users", HandleListCounterparties(deps))
			api.Get("/{id}", HandleGetThread(deps))
			api.Put("/mark/{id}", HandleMarkSeen(deps))
			api.With(perUser(sendLimiter)).Post("/send/{id}", HandleSendMessage(deps))
			api.With(perUser(presignLimiter)).Post("/image/presign", HandlePresignImageUpload(deps))
		})

		authed.Get("/ws", HandleWebSocket(wsUpgrader, connectLimiter, deps))
	})

	return r
}
