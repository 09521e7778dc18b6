package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type fakeUserStore struct {
	users map[string]models.User

	createErr error
	created   []models.User

	history    []models.Video
	historyErr error

	watches        [][2]string
	recordWatchErr error
}

func newFakeUserStore(users ...models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.users[user.ID] = user
	s.created = append(s.created, user)
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return models.User{}, auth.ErrUserNotFound
}

func (s *fakeUserStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, auth.ErrUserNotFound
}

func (s *fakeUserStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, auth.ErrUserNotFound
}

func (s *fakeUserStore) RecordWatch(_ context.Context, userID, videoID string) error {
	if s.recordWatchErr != nil {
		return s.recordWatchErr
	}
	s.watches = append(s.watches, [2]string{userID, videoID})
	return nil
}

func (s *fakeUserStore) WatchHistory(_ context.Context, _ string) ([]models.Video, error) {
	return s.history, s.historyErr
}

type fakeSessions struct {
	loginFn   func(ctx context.Context, identifier, password string) (models.SessionTokens, models.PublicUser, error)
	refreshFn func(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	logoutFn  func(ctx context.Context, userID string) error
}

func (f fakeSessions) Login(ctx context.Context, identifier, password string) (models.SessionTokens, models.PublicUser, error) {
	return f.loginFn(ctx, identifier, password)
}

func (f fakeSessions) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	return f.refreshFn(ctx, refreshToken)
}

func (f fakeSessions) Logout(ctx context.Context, userID string) error {
	if f.logoutFn == nil {
		return nil
	}
	return f.logoutFn(ctx, userID)
}

type fakeVideoStore struct {
	videos map[string]models.Video

	createErr error
	created   []models.Video

	listVideos []models.Video
	listTotal  int64
	listFilter repositories.VideoFilter
	listErr    error

	deleted []string
}

func newFakeVideoStore(videos ...models.Video) *fakeVideoStore {
	s := &fakeVideoStore{videos: make(map[string]models.Video)}
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	return s
}

func (s *fakeVideoStore) Create(_ context.Context, video models.Video) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.videos[video.ID] = video
	s.created = append(s.created, video)
	return nil
}

func (s *fakeVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	if video, ok := s.videos[id]; ok {
		return video, nil
	}
	return models.Video{}, repositories.ErrNotFound
}

func (s *fakeVideoStore) FindByTitle(_ context.Context, title string) (models.Video, error) {
	for _, video := range s.videos {
		if video.Title == title {
			return video, nil
		}
	}
	return models.Video{}, repositories.ErrNotFound
}

func (s *fakeVideoStore) List(_ context.Context, filter repositories.VideoFilter) ([]models.Video, int64, error) {
	s.listFilter = filter
	return s.listVideos, s.listTotal, s.listErr
}

func (s *fakeVideoStore) UpdateThumbnail(_ context.Context, videoID, thumbnailURL string) (models.Video, error) {
	video, ok := s.videos[videoID]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.ThumbnailURL = thumbnailURL
	s.videos[videoID] = video
	return video, nil
}

func (s *fakeVideoStore) Delete(_ context.Context, videoID string) error {
	if _, ok := s.videos[videoID]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, videoID)
	s.deleted = append(s.deleted, videoID)
	return nil
}

type fakeSubscriptionStore struct {
	toggled    [][2]string
	subscribed bool
	toggleErr  error

	stats    repositories.ChannelStats
	statsErr error
}

func (s *fakeSubscriptionStore) Toggle(_ context.Context, subscriberID, channelID string) (bool, error) {
	if s.toggleErr != nil {
		return false, s.toggleErr
	}
	s.toggled = append(s.toggled, [2]string{subscriberID, channelID})
	return s.subscribed, nil
}

func (s *fakeSubscriptionStore) ChannelStats(_ context.Context, _, _ string) (repositories.ChannelStats, error) {
	return s.stats, s.statsErr
}

// fakeUploader consumes staged files the way the real pipeline does: the local
// copy is removed no matter the outcome. Results are keyed by file extension.
type fakeUploader struct {
	results  map[string]media.Result
	calls    []string
	discards []string
}

func (f *fakeUploader) Upload(_ context.Context, stagedPath string) media.Result {
	if strings.TrimSpace(stagedPath) == "" {
		return media.Result{Status: media.StatusNotProvided}
	}

	f.calls = append(f.calls, stagedPath)
	info, statErr := os.Stat(stagedPath)
	os.Remove(stagedPath)

	if res, ok := f.results[filepath.Ext(stagedPath)]; ok {
		return res
	}
	if statErr != nil {
		return media.Result{Status: media.StatusFailed}
	}
	return media.Result{
		Status: media.StatusUploaded,
		URL:    "https://cdn.example.com/media/" + filepath.Base(stagedPath),
		Size:   info.Size(),
	}
}

func (f *fakeUploader) Discard(_ context.Context, stagedPath string) {
	if strings.TrimSpace(stagedPath) == "" {
		return
	}
	f.discards = append(f.discards, stagedPath)
	os.Remove(stagedPath)
}

type fakeVerifier struct {
	tokens map[string]string
}

func (f fakeVerifier) VerifyAccess(token string) (string, error) {
	if userID, ok := f.tokens[token]; ok {
		return userID, nil
	}
	return "", auth.ErrTokenInvalid
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response envelope: %v", err)
	}
	return env
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request payload: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a multipart form request with text fields and file
// parts. File part names are used as the uploaded filename so the staged copy
// keeps its extension.
func multipartRequest(t *testing.T, method, target string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write form field %s: %v", name, err)
		}
	}
	for field, filename := range files {
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file %s: %v", field, err)
		}
		if _, err := io.Copy(part, strings.NewReader("fake file bytes for "+filename)); err != nil {
			t.Fatalf("write form file %s: %v", field, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func withCaller(r *http.Request, user models.PublicUser) *http.Request {
	return r.WithContext(auth.WithUser(r.Context(), user))
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		t.Fatalf("staging dir not empty, leftover files: %s", fmt.Sprint(names))
	}
}
