/*
Package handler provides the HTTP handlers and routing setup for the chat server.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatherchat/internal/app/delivery"
	"gatherchat/internal/app/message"
	"gatherchat/internal/app/user"
	"gatherchat/internal/pkg/auth/jwt"
	"gatherchat/internal/pkg/req"
	"gatherchat/internal/pkg/resp"
)

// SendMessageInput is the body of a send request. Image may be a data URL, an uploaded key or a public URL.
type SendMessageInput struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// CounterpartiesResponse lists every other user plus the caller's unseen counts.
type CounterpartiesResponse struct {
	Users          []user.User    `json:"users"`
	UnseenMessages map[string]int `json:"unseenMessages"`
}

// SendMessageResponse is the stored message and how it reached the receiver.
type SendMessageResponse struct {
	NewMessage message.Message  `json:"newMessage"`
	Outcome    delivery.Outcome `json:"outcome"`
}

// HandleListCounterparties returns the sidebar data for the caller.
func HandleListCounterparties(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, counts, err := deps.Messages.Counterparties(r.Context(), jwt.UserID(r))
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, CounterpartiesResponse{Users: users, UnseenMessages: counts})
	}
}

// HandleGetThread returns the conversation with {id} and marks the counterparty's messages seen.
func HandleGetThread(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		thread, err := deps.Messages.FetchThread(r.Context(), jwt.UserID(r), chi.URLParam(r, "id"))
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, thread)
	}
}

// HandleMarkSeen marks message {id} seen.
func HandleMarkSeen(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Messages.MarkSeen(r.Context(), chi.URLParam(r, "id")); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]bool{"success": true})
	}
}

// HandleSendMessage stores a message to {id} and offers it for live delivery.
func HandleSendMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SendMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		msg, outcome, err := deps.Manager.Send(r.Context(), jwt.UserID(r), chi.URLParam(r, "id"), input.Text, input.Image)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, SendMessageResponse{NewMessage: msg, Outcome: outcome})
	}
}
