package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

func registerForm() map[string]string {
	return map[string]string{
		"username": "Alice",
		"email":    "Alice@Example.com",
		"fullName": "Alice Cooper",
		"password": "hunter2222",
	}
}

func TestRegisterCreatesSanitizedAccount(t *testing.T) {
	users := newFakeUserStore()
	uploads := &fakeUploader{}
	handler := UserHandler{Users: users, Uploads: uploads, UploadDir: t.TempDir()}

	req := multipartRequest(t, http.MethodPost, "/api/v1/users/register", registerForm(), map[string]string{
		"avatar":     "avatar.png",
		"coverImage": "cover.jpg",
	})
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	if !env.Success || env.Message != "User registered successfully" {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	var payload map[string]any
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode user payload: %v", err)
	}
	if payload["username"] != "alice" || payload["email"] != "alice@example.com" {
		t.Fatalf("identifiers were not normalized: %+v", payload)
	}
	for _, secret := range []string{"password", "passwordHash", "refreshToken"} {
		if _, ok := payload[secret]; ok {
			t.Fatalf("credential field %q leaked in response", secret)
		}
	}

	if len(users.created) != 1 {
		t.Fatalf("expected one created user, got %d", len(users.created))
	}
	created := users.created[0]
	if created.Password == "hunter2222" || created.Password == "" {
		t.Fatal("password must be stored hashed")
	}
	if created.AvatarURL == "" || created.CoverImageURL == "" {
		t.Fatalf("asset urls missing on stored user: %+v", created)
	}

	if len(uploads.calls) != 2 {
		t.Fatalf("expected avatar and cover uploads, got %d calls", len(uploads.calls))
	}
	requireEmptyDir(t, handler.UploadDir)
}

func TestRegisterRequiresAvatar(t *testing.T) {
	users := newFakeUserStore()
	uploads := &fakeUploader{}
	handler := UserHandler{Users: users, Uploads: uploads, UploadDir: t.TempDir()}

	req := multipartRequest(t, http.MethodPost, "/api/v1/users/register", registerForm(), map[string]string{
		"coverImage": "cover.jpg",
	})
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "avatar image is required" {
		t.Fatalf("unexpected message %q", env.Message)
	}
	if len(users.created) != 0 {
		t.Fatal("no account may be created without an avatar")
	}
	// The staged cover image must be dropped locally, never pushed to the
	// provider for a rejected request.
	if len(uploads.calls) != 0 {
		t.Fatalf("rejected request must not reach the provider: %+v", uploads.calls)
	}
	if len(uploads.discards) != 1 {
		t.Fatalf("expected the staged cover to be discarded, got %+v", uploads.discards)
	}
	requireEmptyDir(t, handler.UploadDir)
}

func TestRegisterAvatarUploadFailure(t *testing.T) {
	users := newFakeUserStore()
	uploads := &fakeUploader{results: map[string]media.Result{
		".png": {Status: media.StatusFailed},
	}}
	handler := UserHandler{Users: users, Uploads: uploads, UploadDir: t.TempDir()}

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	req := multipartRequest(t, http.MethodPost, "/api/v1/users/register", registerForm(), map[string]string{
		"avatar":     "avatar.png",
		"coverImage": "cover.jpg",
	})
	req = req.WithContext(logging.WithLogger(req.Context(), logger))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "avatar upload failed" {
		t.Fatalf("unexpected message %q", env.Message)
	}
	if len(users.created) != 0 {
		t.Fatal("no account may be created when the avatar upload fails")
	}
	// The hosted cover has no owning record; its URL must be logged for
	// reconciliation.
	if !strings.Contains(logs.String(), "orphaned") || !strings.Contains(logs.String(), "coverUrl") {
		t.Fatalf("expected orphaned cover log line, got %s", logs.String())
	}
	requireEmptyDir(t, handler.UploadDir)
}

func TestRegisterRejectsDuplicateIdentifiers(t *testing.T) {
	users := newFakeUserStore(models.User{
		ID:       "user-1",
		Username: "alice",
		Email:    "alice@example.com",
	})
	handler := UserHandler{Users: users, Uploads: &fakeUploader{}, UploadDir: t.TempDir()}

	req := multipartRequest(t, http.MethodPost, "/api/v1/users/register", registerForm(), map[string]string{
		"avatar": "avatar.png",
	})
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "user with this email or username already exists" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestRegisterValidation(t *testing.T) {
	cases := map[string]struct {
		mutate  func(map[string]string)
		message string
	}{
		"missing field": {
			mutate:  func(form map[string]string) { delete(form, "fullName") },
			message: "all fields are required",
		},
		"invalid email": {
			mutate:  func(form map[string]string) { form["email"] = "not-an-email" },
			message: "invalid email address",
		},
		"short password": {
			mutate:  func(form map[string]string) { form["password"] = "short" },
			message: "password must be at least 8 characters",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			users := newFakeUserStore()
			handler := UserHandler{Users: users, Uploads: &fakeUploader{}, UploadDir: t.TempDir()}

			form := registerForm()
			tc.mutate(form)
			req := multipartRequest(t, http.MethodPost, "/api/v1/users/register", form, nil)
			rec := httptest.NewRecorder()
			handler.Register(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			env := decodeEnvelope(t, rec)
			if env.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, env.Message)
			}
			if len(users.created) != 0 {
				t.Fatal("no account may be created for invalid input")
			}
		})
	}
}

func TestRegisterRateLimited(t *testing.T) {
	handler := UserHandler{
		Users:     newFakeUserStore(),
		Uploads:   &fakeUploader{},
		UploadDir: t.TempDir(),
		Limiter:   denyAllLimiter{},
	}

	req := multipartRequest(t, http.MethodPost, "/api/v1/users/register", registerForm(), nil)
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}
}

func TestChannelProfile(t *testing.T) {
	users := newFakeUserStore(
		models.User{ID: "user-1", Username: "alice"},
		models.User{ID: "user-2", Username: "bob", Email: "bob@example.com", FullName: "Bob Ross"},
	)
	subs := &fakeSubscriptionStore{stats: repositories.ChannelStats{
		Subscribers:  42,
		SubscribedTo: 7,
		IsSubscribed: true,
	}}
	handler := UserHandler{Users: users, Subscriptions: subs}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/channel?username=Bob", nil)
	req = withCaller(req, models.PublicUser{ID: "user-1", Username: "alice"})
	rec := httptest.NewRecorder()
	handler.Channel(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	env := decodeEnvelope(t, rec)
	var profile models.ChannelProfile
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		t.Fatalf("decode channel profile: %v", err)
	}
	if profile.Username != "bob" || profile.Subscribers != 42 || profile.SubscribedTo != 7 || !profile.IsSubscribed {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestChannelNotFound(t *testing.T) {
	handler := UserHandler{Users: newFakeUserStore(), Subscriptions: &fakeSubscriptionStore{}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/channel?username=ghost", nil)
	req = withCaller(req, models.PublicUser{ID: "user-1"})
	rec := httptest.NewRecorder()
	handler.Channel(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestChannelRequiresUsername(t *testing.T) {
	handler := UserHandler{Users: newFakeUserStore(), Subscriptions: &fakeSubscriptionStore{}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/channel", nil)
	req = withCaller(req, models.PublicUser{ID: "user-1"})
	rec := httptest.NewRecorder()
	handler.Channel(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHistoryReturnsEmptySliceNotNull(t *testing.T) {
	users := newFakeUserStore()
	handler := UserHandler{Users: users}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil)
	req = withCaller(req, models.PublicUser{ID: "user-1"})
	rec := httptest.NewRecorder()
	handler.History(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if string(env.Data) != "[]" {
		t.Fatalf("expected empty array, got %s", env.Data)
	}
}

func TestHistoryReturnsWatchedVideos(t *testing.T) {
	users := newFakeUserStore()
	users.history = []models.Video{
		{ID: "video-1", Title: "first"},
		{ID: "video-2", Title: "second"},
	}
	handler := UserHandler{Users: users}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil)
	req = withCaller(req, models.PublicUser{ID: "user-1"})
	rec := httptest.NewRecorder()
	handler.History(rec, req)

	env := decodeEnvelope(t, rec)
	var videos []models.Video
	if err := json.Unmarshal(env.Data, &videos); err != nil {
		t.Fatalf("decode history payload: %v", err)
	}
	if len(videos) != 2 || videos[0].ID != "video-1" {
		t.Fatalf("unexpected history: %+v", videos)
	}
}
