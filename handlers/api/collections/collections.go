package collections

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"gamedex/core"
	"gamedex/middleware"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes caps a POST body; game_data is stored verbatim.
const maxBodyBytes = 1 << 20

// Broadcaster is told about every confirmed collection change.
type Broadcaster interface {
	CollectionChanged(userID string, event core.CollectionEvent)
}

type addRequest struct {
	GameID   int64           `json:"game_id"`
	GameData json.RawMessage `json:"game_data"`
}

// Handler serves /api/user/collections for the authenticated user.
type Handler struct {
	store       core.CollectionStore
	broadcaster Broadcaster
}

// NewHandler wires the collection routes. broadcaster may be nil.
func NewHandler(store core.CollectionStore, broadcaster Broadcaster) *Handler {
	return &Handler{store: store, broadcaster: broadcaster}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}

	rows, err := h.store.List(r.Context(), user.ID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"error":  err,
			"userID": user.ID,
		}).Error("Failed to fetch collections")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "Failed to fetch collections"})
		return
	}

	// Render an empty array rather than null.
	if rows == nil {
		rows = []*core.CollectionRow{}
	}
	render.JSON(w, r, rows)
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Request body too large"})
			return
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Failed to read request body"})
		return
	}
	var req addRequest
	if err := json.Unmarshal(body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.GameID == 0 || !isObject(req.GameData) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Missing game_id or game_data"})
		return
	}

	log := logrus.WithFields(logrus.Fields{"userID": user.ID, "gameID": req.GameID})

	if _, err := h.store.Get(r.Context(), user.ID, req.GameID); err == nil {
		alreadyCollected(w, r)
		return
	} else if !errors.Is(err, core.ErrNotFound) {
		log.WithField("error", err).Error("Failed to check existing game")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "Failed to check existing game"})
		return
	}

	row := &core.CollectionRow{
		UserID:   user.ID,
		GameID:   req.GameID,
		GameData: req.GameData,
	}
	if err := h.store.Insert(r.Context(), row); err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			alreadyCollected(w, r)
			return
		}
		log.WithField("error", err).Error("Failed to add to collection")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "Failed to add to collection"})
		return
	}

	log.Info("Game added to collection")
	h.notify(user.ID, core.CollectionEvent{Action: core.CollectionAdded, GameID: row.GameID, Row: row})
	render.JSON(w, r, row)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}

	raw := r.URL.Query().Get("game_id")
	if raw == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Game ID is required"})
		return
	}
	gameID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Invalid game ID"})
		return
	}

	if err := h.store.Delete(r.Context(), user.ID, gameID); err != nil {
		logrus.WithFields(logrus.Fields{
			"error":  err,
			"userID": user.ID,
			"gameID": gameID,
		}).Error("Failed to remove from collection")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "Failed to remove from collection"})
		return
	}

	h.notify(user.ID, core.CollectionEvent{Action: core.CollectionRemoved, GameID: gameID})
	render.JSON(w, r, map[string]bool{"success": true})
}

func (h *Handler) notify(userID string, event core.CollectionEvent) {
	if h.broadcaster != nil {
		h.broadcaster.CollectionChanged(userID, event)
	}
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 1 && trimmed[0] == '{'
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"error": "Unauthorized"})
}

func alreadyCollected(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]string{"error": "Game already in collection"})
}
