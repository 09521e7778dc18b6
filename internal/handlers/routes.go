package handlers

import "net/http"

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Videos        VideoStore
	Subscriptions SubscriptionStore
	Uploads       MediaUploader
	Verifier      TokenVerifier
	UploadDir     string
	AuthLimiter   RateLimiter
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	gate := AuthGate{Verifier: deps.Verifier, Users: deps.Users}

	health := HealthHandler{}
	authH := AuthHandler{Sessions: deps.Sessions, Limiter: deps.AuthLimiter}
	users := UserHandler{
		Users:         deps.Users,
		Subscriptions: deps.Subscriptions,
		Uploads:       deps.Uploads,
		UploadDir:     deps.UploadDir,
		Limiter:       deps.AuthLimiter,
	}
	videos := VideoHandler{
		Videos:    deps.Videos,
		Users:     deps.Users,
		Uploads:   deps.Uploads,
		UploadDir: deps.UploadDir,
	}
	subscriptions := SubscriptionHandler{Users: deps.Users, Subscriptions: deps.Subscriptions}

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("/api/v1/users/register", users.Register)
	mux.HandleFunc("/api/v1/users/login", authH.Login)
	mux.HandleFunc("/api/v1/users/refresh", authH.Refresh)
	mux.HandleFunc("/api/v1/users/logout", gate.Require(authH.Logout))
	mux.HandleFunc("/api/v1/users/channel", gate.Require(users.Channel))
	mux.HandleFunc("/api/v1/users/history", gate.Require(users.History))

	mux.HandleFunc("/api/v1/subscriptions/toggle", gate.Require(subscriptions.Toggle))

	mux.HandleFunc("/api/v1/videos", videos.route(gate))
	mux.HandleFunc("/api/v1/videos/lookup", gate.Attach(videos.Lookup))
	mux.HandleFunc("/api/v1/videos/thumbnail", gate.Require(videos.ChangeThumbnail))
}

// route dispatches /api/v1/videos by method: listing is public, mutations run
// behind the auth gate.
func (h VideoHandler) route(gate AuthGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.List(w, r)
		case http.MethodPost:
			gate.Require(h.Create)(w, r)
		case http.MethodDelete:
			gate.Require(h.Delete)(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}
