package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/playerapi/internal/metrics"
	"github.com/hitoshi/playerapi/internal/model"
	"github.com/hitoshi/playerapi/internal/validation"
)

// PlayerStore はプレイヤーハンドラーが必要とする永続化インターフェース。
// repository.PlayerRepositoryが実装する。
type PlayerStore interface {
	List(ctx context.Context) ([]*model.Player, error)
	FindByID(ctx context.Context, id string) (*model.Player, error)
	Create(ctx context.Context, player *model.Player) (int64, error)
	Update(ctx context.Context, player *model.Player) (int64, error)
	Delete(ctx context.Context, player *model.Player) (int64, error)
}

// PlayerHandler はプレイヤーCRUDのHTTPハンドラー。
type PlayerHandler struct {
	store     PlayerStore
	validator *validation.Validator
	metrics   metrics.MetricsCollector

	newID func() string
}

// NewPlayerHandler はPlayerHandlerを生成する。
func NewPlayerHandler(store PlayerStore, v *validation.Validator, mc metrics.MetricsCollector) *PlayerHandler {
	if mc == nil {
		mc = metrics.Noop{}
	}
	return &PlayerHandler{
		store:     store,
		validator: v,
		metrics:   mc,
		newID:     uuid.NewString,
	}
}

// ListPlayers は全プレイヤーを返す。
// GET /player
func (h *PlayerHandler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.store.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if players == nil {
		players = []*model.Player{}
	}

	writeJSON(w, http.StatusOK, players)
}

// GetPlayer は指定IDのプレイヤーを返す。
// GET /player/{id}
func (h *PlayerHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	player, ok := h.findPlayer(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, player)
}

// CreatePlayer はプレイヤーを作成する。IDはサーバー側で採番する。
// POST /player
func (h *PlayerHandler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	player, err := decodeBody[model.Player](w, r)
	if err != nil {
		writeDecodeError(w, err, model.NewPlayerNotDefinedError())
		return
	}

	if problems := h.validator.Validate(player); !problems.Valid() {
		writeValidationProblem(w, problems)
		return
	}

	player.ID = h.newID()

	saved, err := h.store.Create(r.Context(), player)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordPlayerMutation(metrics.OpCreate, saved)
	if saved == 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewSaveFailedError())
		return
	}

	w.Header().Set("Location", "/player/"+player.ID)
	writeJSON(w, http.StatusCreated, player)
}

// UpdatePlayer はプレイヤーを丸ごと置き換える。既存行は存在確認にのみ使用する。
// PUT /player/{id}
func (h *PlayerHandler) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.findPlayer(w, r)
	if !ok {
		return
	}

	incoming, err := decodeBody[model.Player](w, r)
	if err != nil {
		writeDecodeError(w, err, model.NewPlayerNotDefinedError())
		return
	}

	problems := h.validator.Validate(incoming)
	if incoming.ID != "" && incoming.ID != existing.ID {
		problems.Add("id", "The id field must match the id in the URL.")
	}
	if !problems.Valid() {
		writeValidationProblem(w, problems)
		return
	}

	incoming.ID = existing.ID

	saved, err := h.store.Update(r.Context(), incoming)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordPlayerMutation(metrics.OpUpdate, saved)
	if saved == 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewSaveFailedError())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeletePlayer はプレイヤーを削除する。
// DELETE /player/{id}
func (h *PlayerHandler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.findPlayer(w, r)
	if !ok {
		return
	}

	saved, err := h.store.Delete(r.Context(), existing)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordPlayerMutation(metrics.OpDelete, saved)
	if saved == 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewSaveFailedError())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// findPlayer はURLパラメータのIDでプレイヤーを取得する。
// IDがUUIDでない場合や存在しない場合は404を書き込みfalseを返す。
func (h *PlayerHandler) findPlayer(w http.ResponseWriter, r *http.Request) (*model.Player, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w)
		return nil, false
	}

	player, err := h.store.FindByID(r.Context(), id.String())
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	if player == nil {
		writeNotFound(w)
		return nil, false
	}
	return player, true
}
