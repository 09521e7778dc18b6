package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// UserRepository defines the data access contract for users. Missing users
// are reported with auth.ErrUserNotFound so the session layer can react
// without knowing about the storage engine.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	ClearRefreshToken(ctx context.Context, userID string) error
	RecordWatch(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string) ([]models.Video, error)
}

// VideoFilter narrows and orders video listings.
type VideoFilter struct {
	Query    string
	OwnerID  string
	SortBy   string
	SortType string
	Page     int
	Limit    int
}

// VideoRepository defines the data access contract for videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	FindByTitle(ctx context.Context, title string) (models.Video, error)
	List(ctx context.Context, filter VideoFilter) ([]models.Video, int64, error)
	UpdateThumbnail(ctx context.Context, videoID, thumbnailURL string) (models.Video, error)
	Delete(ctx context.Context, videoID string) error
}

// ChannelStats aggregates the subscription counters for a channel as seen by
// a particular viewer.
type ChannelStats struct {
	Subscribers  int64
	SubscribedTo int64
	IsSubscribed bool
}

// SubscriptionRepository defines the data access contract for channel subscriptions.
type SubscriptionRepository interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	ChannelStats(ctx context.Context, channelID, viewerID string) (ChannelStats, error)
}
