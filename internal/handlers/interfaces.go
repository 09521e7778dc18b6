package handlers

import (
	"context"

	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	RecordWatch(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string) ([]models.Video, error)
}

// SessionManager drives the login, refresh, and logout flows.
type SessionManager interface {
	Login(ctx context.Context, identifier, password string) (models.SessionTokens, models.PublicUser, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Logout(ctx context.Context, userID string) error
}

// TokenVerifier checks inbound access tokens for the auth gate.
type TokenVerifier interface {
	VerifyAccess(token string) (string, error)
}

// VideoStore captures persistence for the video handlers.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	FindByTitle(ctx context.Context, title string) (models.Video, error)
	List(ctx context.Context, filter repositories.VideoFilter) ([]models.Video, int64, error)
	UpdateThumbnail(ctx context.Context, videoID, thumbnailURL string) (models.Video, error)
	Delete(ctx context.Context, videoID string) error
}

// SubscriptionStore captures persistence for channel subscriptions.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	ChannelStats(ctx context.Context, channelID, viewerID string) (repositories.ChannelStats, error)
}

// MediaUploader pushes staged files to the external storage provider. Discard
// removes a staged file without hosting it, for requests rejected after
// staging.
type MediaUploader interface {
	Upload(ctx context.Context, stagedPath string) media.Result
	Discard(ctx context.Context, stagedPath string)
}
