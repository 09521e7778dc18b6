package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// VideoHandler implements the video upload and catalogue endpoints.
type VideoHandler struct {
	Videos    VideoStore
	Users     UserStore
	Uploads   MediaUploader
	UploadDir string
	NowFunc   func() time.Time
}

// Create handles POST /api/v1/videos multipart requests behind the auth gate.
// Both assets must be hosted before a record is persisted; a failed mandatory
// upload aborts the sequence with nothing written.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	owner, ok := auth.UserFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.Warn("invalid video payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		respondError(ctx, w, http.StatusBadRequest, "all fields are required")
		return
	}

	thumbPath, err := media.StageFile(r, "thumbnail", h.UploadDir)
	if err != nil {
		logger.Error("stage thumbnail", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "unable to read thumbnail")
		return
	}
	videoPath, err := media.StageFile(r, "videoFile", h.UploadDir)
	if err != nil {
		logger.Error("stage video file", "error", err)
		// The thumbnail staging must not outlive this attempt.
		h.Uploads.Discard(ctx, thumbPath)
		respondError(ctx, w, http.StatusBadRequest, "unable to read video file")
		return
	}

	if thumbPath == "" || videoPath == "" {
		// Drop whichever file was staged so nothing is left behind.
		h.Uploads.Discard(ctx, thumbPath)
		h.Uploads.Discard(ctx, videoPath)
		respondError(ctx, w, http.StatusBadRequest, "thumbnail and video file are required")
		return
	}

	thumbnail := h.Uploads.Upload(ctx, thumbPath)
	videoAsset := h.Uploads.Upload(ctx, videoPath)

	if !thumbnail.Uploaded() {
		respondError(ctx, w, http.StatusBadRequest, "problem during uploading thumbnail")
		return
	}
	if !videoAsset.Uploaded() {
		logger.Error("video upload failed, thumbnail orphaned", "thumbnailUrl", thumbnail.URL)
		respondError(ctx, w, http.StatusBadRequest, "problem during uploading video")
		return
	}

	now := h.now()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      owner.ID,
		Title:        title,
		Description:  description,
		VideoURL:     videoAsset.URL,
		ThumbnailURL: thumbnail.URL,
		Duration:     videoAsset.Duration,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		// The hosted assets are not rolled back; record them for reconciliation.
		logger.Error("create video failed, uploaded assets orphaned",
			"videoUrl", videoAsset.URL, "thumbnailUrl", thumbnail.URL, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to save video")
		return
	}

	created, err := h.Videos.FindByID(ctx, video.ID)
	if err != nil {
		logger.Error("load created video", "videoId", video.ID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "something went wrong")
		return
	}

	respondData(ctx, w, http.StatusCreated, created, "Video uploaded successfully")
}

type videoListing struct {
	TotalVideos int64          `json:"totalVideos"`
	TotalPages  int64          `json:"totalPages"`
	Current     int            `json:"current"`
	Videos      []models.Video `json:"videos"`
}

// List handles GET /api/v1/videos requests.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	params := r.URL.Query()

	filter := repositories.VideoFilter{
		Query:    params.Get("query"),
		OwnerID:  params.Get("userId"),
		SortBy:   params.Get("sortBy"),
		SortType: params.Get("sortType"),
		Page:     intParam(params.Get("page"), 1),
		Limit:    intParam(params.Get("limit"), 10),
	}

	videos, total, err := h.Videos.List(ctx, filter)
	if err != nil {
		logging.FromContext(ctx).Error("list videos failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "error fetching all the videos")
		return
	}

	if videos == nil {
		videos = []models.Video{}
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	listing := videoListing{
		TotalVideos: total,
		TotalPages:  int64(math.Ceil(float64(total) / float64(limit))),
		Current:     filter.Page,
		Videos:      videos,
	}

	respondData(ctx, w, http.StatusOK, listing, "All videos fetched")
}

// Lookup handles GET /api/v1/videos/lookup requests. When a signed-in caller
// is attached by the auth gate the fetch is recorded in their watch history.
func (h VideoHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title required")
		return
	}

	video, err := h.Videos.FindByTitle(ctx, title)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "no video found")
			return
		}
		logging.FromContext(ctx).Error("video lookup failed", "title", title, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch video")
		return
	}

	if viewer, ok := auth.UserFrom(ctx); ok {
		if err := h.Users.RecordWatch(ctx, viewer.ID, video.ID); err != nil {
			logging.FromContext(ctx).Warn("record watch failed", "userId", viewer.ID, "videoId", video.ID, "error", err)
		}
	}

	respondData(ctx, w, http.StatusOK, video, "Video fetched successfully")
}

type deleteVideoRequest struct {
	Title string `json:"title"`
}

// Delete handles DELETE /api/v1/videos requests behind the auth gate. Only
// the owner may remove a video.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	caller, ok := auth.UserFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	var req deleteVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title required")
		return
	}

	video, err := h.Videos.FindByTitle(ctx, req.Title)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Video not found")
			return
		}
		logging.FromContext(ctx).Error("video lookup failed", "title", req.Title, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to delete video")
		return
	}

	if video.OwnerID != caller.ID {
		respondError(ctx, w, http.StatusForbidden, "you do not own this video")
		return
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		logging.FromContext(ctx).Error("delete video failed", "videoId", video.ID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to delete video")
		return
	}

	respondData(ctx, w, http.StatusOK, map[string]string{}, "Video deleted successfully")
}

// ChangeThumbnail handles PATCH /api/v1/videos/thumbnail multipart requests
// behind the auth gate.
func (h VideoHandler) ChangeThumbnail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	caller, ok := auth.UserFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	videoID := strings.TrimSpace(r.FormValue("videoId"))
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoId required")
		return
	}

	thumbPath, err := media.StageFile(r, "thumbnail", h.UploadDir)
	if err != nil {
		logger.Error("stage thumbnail", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "unable to read thumbnail")
		return
	}
	if thumbPath == "" {
		respondError(ctx, w, http.StatusBadRequest, "thumbnail file is missing")
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		// Drop the staged file before bailing.
		h.Uploads.Discard(ctx, thumbPath)
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Video not found")
			return
		}
		logger.Error("video lookup failed", "videoId", videoID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to change thumbnail")
		return
	}

	if video.OwnerID != caller.ID {
		h.Uploads.Discard(ctx, thumbPath)
		respondError(ctx, w, http.StatusForbidden, "you do not own this video")
		return
	}

	thumbnail := h.Uploads.Upload(ctx, thumbPath)
	if !thumbnail.Uploaded() {
		respondError(ctx, w, http.StatusBadRequest, "error while uploading thumbnail")
		return
	}

	updated, err := h.Videos.UpdateThumbnail(ctx, video.ID, thumbnail.URL)
	if err != nil {
		logger.Error("update thumbnail failed, uploaded asset orphaned",
			"videoId", video.ID, "thumbnailUrl", thumbnail.URL, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to change thumbnail")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "Thumbnail changed successfully")
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func intParam(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
