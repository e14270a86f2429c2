package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"gatherchat/internal/pkg/auth/jwt"
	"gatherchat/internal/pkg/errs"
	"gatherchat/internal/pkg/limiter"
	"gatherchat/internal/pkg/logx"
	"gatherchat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc that upgrades an authenticated request
// and serves it as the caller's live connection until it closes.
func HandleWebSocket(upgrader websocket.Upgrader, connectLimiter *limiter.KeyedLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)
		if !connectLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		userID := jwt.UserID(r)
		if userID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Warn("Failed to upgrade connection to WebSocket", "user_id", userID, "error", err.Error())
			return
		}

		logx.Debug("WebSocket connection established", "user_id", userID)

		deps.Manager.Serve(conn, userID)
	}
}
