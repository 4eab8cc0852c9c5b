package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"birdbot/internal/config"
	"birdbot/internal/queue"
	"birdbot/internal/slack"
	"birdbot/internal/utils"
)

// InstanceWriter persists the installation record the OAuth callback creates.
type InstanceWriter interface {
	UpsertInstance(ctx context.Context, teamID, accessToken string) error
}

// Server owns the inbound HTTP surface: the events webhook plus the OAuth
// install and callback endpoints. Heavy work never happens here; verified
// callbacks are handed to the queue and the response returns immediately.
type Server struct {
	Config config.Config
	Slack  *slack.Client
	Store  InstanceWriter
	Queue  *queue.Queue
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/install", s.handleInstall)
	mux.HandleFunc("/authorize", s.handleAuthorize)
	mux.HandleFunc("/event", s.handleEvent)
	return loggingMiddleware(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	state, err := slack.MakeState(s.Config.SlackSigningSecret)
	if err != nil {
		http.Error(w, "failed to create state", http.StatusInternalServerError)
		return
	}
	authURL, err := s.Slack.AuthorizeURL(s.Config.SlackClientID, s.Config.SlackRedirectURL, s.Config.SlackScopes, state)
	if err != nil {
		http.Error(w, "failed to build install url", http.StatusInternalServerError)
		return
	}
	utils.Debug("install redirect")
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if r.URL.Query().Get("error") == "access_denied" {
		plainText(w, http.StatusBadRequest, "Permissions not accepted.")
		return
	}
	if code == "" {
		plainText(w, http.StatusBadRequest, "missing code")
		return
	}
	if err := slack.VerifyState(s.Config.SlackSigningSecret, state); err != nil {
		utils.Warn("authorize state rejected", "err", err)
		plainText(w, http.StatusBadRequest, "invalid state")
		return
	}

	resp, err := s.Slack.ExchangeOAuthCode(r.Context(), s.Config.SlackClientID, s.Config.SlackClientSecret, code, s.Config.SlackRedirectURL)
	if err != nil {
		utils.Warn("oauth exchange failed", "err", err)
		plainText(w, http.StatusBadRequest, "oauth failed")
		return
	}
	if err := s.Store.UpsertInstance(r.Context(), resp.Team.ID, resp.AccessToken); err != nil {
		utils.Error("store installation failed", "team_id", resp.Team.ID, "err", err)
		plainText(w, http.StatusInternalServerError, "failed to store installation")
		return
	}

	utils.Info("app installed", "team_id", resp.Team.ID, "team_name", resp.Team.Name)
	if s.Config.SlackAppID != "" {
		http.Redirect(w, r, s.Slack.AppRedirectURL(s.Config.SlackAppID), http.StatusFound)
		return
	}
	plainText(w, http.StatusOK, "Installed successfully. You can close this window.")
}

// handleEvent is the webhook receiver: authenticate, classify, enqueue.
// Everything here must stay fast; processing happens on the worker side.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		plainText(w, http.StatusBadRequest, "read body failed")
		return
	}

	if err := slack.VerifySignature(s.Config.SlackSigningSecret, r.Header, body, time.Now()); err != nil {
		utils.Warn("event signature rejected", "err", err)
		plainText(w, http.StatusBadRequest, err.Error())
		return
	}

	var envelope slack.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		utils.Error("event body unmarshal failed", "err", err, "bytes", len(body))
		plainText(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch envelope.Type {
	case "url_verification":
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"challenge": envelope.Challenge})
	case "event_callback":
		item := s.Queue.Enqueue(envelope)
		utils.Debug("event enqueued",
			"event_id", item.ID,
			"team_id", envelope.TeamID,
			"event_type", envelope.Event.Type,
			"subtype", envelope.Event.Subtype,
		)
		w.WriteHeader(http.StatusOK)
	default:
		plainText(w, http.StatusBadRequest, fmt.Sprintf("Unsupported event type '%s'", envelope.Type))
	}
}

func plainText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
