package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/rushapp/rushcast/internal/config"
	"github.com/rushapp/rushcast/internal/exporter"
	"github.com/rushapp/rushcast/internal/hub"
	"github.com/rushapp/rushcast/internal/logging"
	"github.com/rushapp/rushcast/internal/snapshot"
	"github.com/rushapp/rushcast/internal/voting"
	"github.com/rushapp/rushcast/internal/webui"
)

const maxBodyBytes = 64 << 10

type API struct {
	cfg      *config.Config
	hub      *hub.Hub
	votes    *voting.Service
	reader   *snapshot.Reader
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func New(cfg *config.Config, h *hub.Hub, votes *voting.Service, reader *snapshot.Reader, log *slog.Logger) *API {
	a := &API{cfg: cfg, hub: h, votes: votes, reader: reader, log: log.With("component", "api")}
	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     a.checkOrigin,
	}
	return a
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(a.requestID)
	r.Use(middleware.Recoverer)

	// Subscriber endpoints. The optional {id} names the subscriber; otherwise one is generated.
	r.Get("/voter", a.subscribe(hub.AudienceVoter))
	r.Get("/voter/{id}", a.subscribe(hub.AudienceVoter))
	r.Get("/admin", a.subscribe(hub.AudienceAdmin))
	r.Get("/admin/{id}", a.subscribe(hub.AudienceAdmin))

	r.Group(func(r chi.Router) {
		r.Use(a.accessLog)

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, a.hub.Stats())
		})

		// POST /rushee/vote {"brother_id":"...","first_name":"...","last_name":"...","vote":"yes"}
		r.Post("/rushee/vote", a.handleVote)

		r.Route("/admin/voting", func(r chi.Router) {
			r.Use(a.requireAdmin)
			r.Post("/change-rushee", a.handleChangeRushee)
			r.Post("/post-question", a.handlePostQuestion)
			r.Post("/clear-votes", a.handleClearVotes)
			r.Post("/make-ineligible", a.handleEligibility(false))
			r.Post("/make-eligible", a.handleEligibility(true))
			r.Get("/get-eligibility", a.handleGetEligibility)

			// GET /admin/voting/tally?format=json|csv
			r.Get("/tally", a.handleTally)
		})
	})

	// Debug page for poking at the websocket endpoints from a browser.
	if ui, err := webui.Handler(); err == nil {
		r.Handle("/debug/*", http.StripPrefix("/debug", ui))
		r.Get("/debug", http.RedirectHandler("/debug/", http.StatusMovedPermanently).ServeHTTP)
	} else {
		a.log.Warn("debug page unavailable", "error", err)
	}

	return r
}

func (a *API) subscribe(audience string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aud, ok := a.hub.Audience(audience)
		if !ok {
			http.NotFound(w, r)
			return
		}
		conn, err := a.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied with an HTTP error.
			logging.FromContext(r.Context(), a.log).Debug("upgrade failed", "audience", audience, "error", err)
			return
		}
		a.hub.NewSession(aud, conn, chi.URLParam(r, "id")).Run(r.Context())
	}
}

// checkOrigin allows every origin when no allow-list is configured, and requests without
// an Origin header (non-browser clients) always.
func (a *API) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(a.cfg.API.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range a.cfg.API.AllowedOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (a *API) handleVote(w http.ResponseWriter, r *http.Request) {
	var b voting.Ballot
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&b); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	outcome, err := a.votes.Submit(r.Context(), b)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": outcome})
}

func (a *API) handleChangeRushee(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	if err := a.votes.ChangeRushee(r.Context(), body); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "rushee": json.RawMessage(body)})
}

func (a *API) handlePostQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := a.votes.SetQuestion(r.Context(), req.Question); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func (a *API) handleClearVotes(w http.ResponseWriter, r *http.Request) {
	if err := a.votes.ClearVotes(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func (a *API) handleEligibility(eligible bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			GTID string `json:"gtid"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := a.votes.SetEligibility(r.Context(), req.GTID, eligible); err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
	}
}

func (a *API) handleGetEligibility(w http.ResponseWriter, r *http.Request) {
	ids, err := a.votes.Ineligible(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "ineligible_ids": ids})
}

func (a *API) handleTally(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		http.Error(w, "unknown format", http.StatusBadRequest)
		return
	}
	b, ct, err := exporter.Export(r.Context(), a.reader, format)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, voting.ErrInvalid) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logging.FromContext(r.Context(), a.log).Error("request failed", "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requireAdmin checks a bearer token against the configured bcrypt hash. With no hash
// configured the admin routes are open.
func (a *API) requireAdmin(next http.Handler) http.Handler {
	hash := []byte(a.cfg.API.AdminTokenHash)
	if len(hash) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" || bcrypt.CompareHashAndPassword(hash, []byte(token)) != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func (a *API) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.FromContext(r.Context(), a.log).Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
