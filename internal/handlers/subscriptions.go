package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
)

// SubscriptionHandler implements channel subscription endpoints.
type SubscriptionHandler struct {
	Users         UserStore
	Subscriptions SubscriptionStore
}

type toggleSubscriptionRequest struct {
	ChannelID string `json:"channelId"`
}

type toggleSubscriptionResponse struct {
	ChannelID  string `json:"channelId"`
	Subscribed bool   `json:"subscribed"`
}

// Toggle handles POST /api/v1/subscriptions/toggle requests behind the auth
// gate, subscribing the caller to the channel or removing an existing
// subscription.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	caller, ok := auth.UserFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	var req toggleSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.ChannelID = strings.TrimSpace(req.ChannelID)
	if req.ChannelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channelId required")
		return
	}
	if req.ChannelID == caller.ID {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	if _, err := h.Users.FindByID(ctx, req.ChannelID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel does not exist")
			return
		}
		logging.FromContext(ctx).Error("channel lookup failed", "channelId", req.ChannelID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle subscription")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, caller.ID, req.ChannelID)
	if err != nil {
		logging.FromContext(ctx).Error("toggle subscription failed", "channelId", req.ChannelID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle subscription")
		return
	}

	message := "Subscribed successfully"
	if !subscribed {
		message = "Unsubscribed successfully"
	}

	respondData(ctx, w, http.StatusOK, toggleSubscriptionResponse{ChannelID: req.ChannelID, Subscribed: subscribed}, message)
}
