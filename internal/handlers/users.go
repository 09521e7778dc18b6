package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
)

const maxUploadBytes = 256 << 20

// UserHandler implements account registration and user-centric read projections.
type UserHandler struct {
	Users         UserStore
	Subscriptions SubscriptionStore
	Uploads       MediaUploader
	UploadDir     string
	Limiter       RateLimiter
	NowFunc       func() time.Time
}

// Register handles POST /api/v1/users/register multipart requests. Both
// profile images are pushed through the upload pipeline before the account is
// created; the avatar is mandatory, the cover image is best effort.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many registration attempts")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.Warn("invalid registration payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	username := strings.TrimSpace(strings.ToLower(r.FormValue("username")))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	fullName := strings.TrimSpace(r.FormValue("fullName"))
	password := r.FormValue("password")

	if username == "" || email == "" || fullName == "" || password == "" {
		respondError(ctx, w, http.StatusBadRequest, "all fields are required")
		return
	}

	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	if len(password) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	for _, identifier := range []string{username, email} {
		if _, err := h.Users.FindByIdentifier(ctx, identifier); err == nil {
			respondError(ctx, w, http.StatusConflict, "user with this email or username already exists")
			return
		} else if !errors.Is(err, auth.ErrUserNotFound) {
			logger.Error("registration lookup failed", "identifier", identifier, "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "unable to verify existing accounts")
			return
		}
	}

	avatarPath, err := media.StageFile(r, "avatar", h.UploadDir)
	if err != nil {
		logger.Error("stage avatar", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "unable to read avatar image")
		return
	}
	coverPath, err := media.StageFile(r, "coverImage", h.UploadDir)
	if err != nil {
		logger.Error("stage cover image", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "unable to read cover image")
		return
	}

	if avatarPath == "" {
		// Drop the cover staging before bailing so no temp file survives.
		h.Uploads.Discard(ctx, coverPath)
		respondError(ctx, w, http.StatusBadRequest, "avatar image is required")
		return
	}

	avatar := h.Uploads.Upload(ctx, avatarPath)
	cover := h.Uploads.Upload(ctx, coverPath)

	if !avatar.Uploaded() {
		if cover.Uploaded() {
			// The hosted cover is not rolled back; record it for reconciliation.
			logger.Error("avatar upload failed, hosted cover orphaned", "coverUrl", cover.URL)
		}
		respondError(ctx, w, http.StatusBadRequest, "avatar upload failed")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		Password:      string(hashed),
		AvatarURL:     avatar.URL,
		CoverImageURL: cover.URL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		// The hosted assets are not rolled back; record them for reconciliation.
		logger.Error("create user failed, uploaded assets orphaned",
			"username", username, "avatarUrl", avatar.URL, "coverUrl", cover.URL, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	created, err := h.Users.FindByID(ctx, user.ID)
	if err != nil {
		logger.Error("load created user", "userId", user.ID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "something went wrong")
		return
	}

	respondData(ctx, w, http.StatusCreated, created.Public(), "User registered successfully")
}

// Channel handles GET /api/v1/users/channel requests behind the auth gate.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	viewer, ok := auth.UserFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	username := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("username")))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is required")
		return
	}

	channel, err := h.Users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel does not exist")
			return
		}
		logging.FromContext(ctx).Error("channel lookup failed", "username", username, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load channel")
		return
	}

	stats, err := h.Subscriptions.ChannelStats(ctx, channel.ID, viewer.ID)
	if err != nil {
		logging.FromContext(ctx).Error("channel stats failed", "channelId", channel.ID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load channel")
		return
	}

	profile := models.ChannelProfile{
		PublicUser:   channel.Public(),
		Subscribers:  stats.Subscribers,
		SubscribedTo: stats.SubscribedTo,
		IsSubscribed: stats.IsSubscribed,
	}

	respondData(ctx, w, http.StatusOK, profile, "Channel fetched successfully")
}

// History handles GET /api/v1/users/history requests behind the auth gate.
func (h UserHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	viewer, ok := auth.UserFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	videos, err := h.Users.WatchHistory(ctx, viewer.ID)
	if err != nil {
		logging.FromContext(ctx).Error("watch history failed", "userId", viewer.ID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load watch history")
		return
	}

	if videos == nil {
		videos = []models.Video{}
	}

	respondData(ctx, w, http.StatusOK, videos, "Watch history fetched successfully")
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
