package bulk

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	redisClient "quel-catalog-server/modules/common/redis"
)

// Handler - bulk batch HTTP 핸들러
type Handler struct {
	runner   *Runner
	validate *validator.Validate
}

// RunRequest - 동기 실행 요청
type RunRequest struct {
	MerchantID string `json:"merchant_id" validate:"required"`
}

// RunResponse - 실행/조회 응답
type RunResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	BatchID string      `json:"batch_id,omitempty"`
	Result  *Result     `json:"result,omitempty"`
	Batch   interface{} `json:"batch,omitempty"`
}

// NewHandler - Handler 생성
func NewHandler(runner *Runner, validate *validator.Validate) *Handler {
	if validate == nil {
		validate = validator.New()
	}
	return &Handler{runner: runner, validate: validate}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/bulk/batches/{batchId}/run", h.HandleRun).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/bulk/batches/{batchId}", h.HandleGet).Methods("GET", "OPTIONS")
	log.Println("✅ Bulk routes registered: POST /api/bulk/batches/{batchId}/run, GET /api/bulk/batches/{batchId}")
}

// HandleRun - POST /api/bulk/batches/{batchId}/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if writeCORS(w, r) {
		return
	}
	batchID := mux.Vars(r)["batchId"]

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, RunResponse{Success: false, Error: "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, RunResponse{Success: false, Error: "merchant_id is required"})
		return
	}

	log.Printf("📥 [Bulk] Synchronous run requested: batch %s (merchant: %s)", batchID, req.MerchantID)

	// 요청이 끊겨도 batch는 끝까지 진행
	result, err := h.runner.Run(context.WithoutCancel(r.Context()), batchID, req.MerchantID)
	if err != nil {
		writeJSON(w, statusFor(err), RunResponse{Success: false, Error: err.Error(), BatchID: batchID})
		return
	}

	writeJSON(w, http.StatusOK, RunResponse{Success: result.Success, BatchID: batchID, Result: result})
}

// HandleGet - GET /api/bulk/batches/{batchId}?merchant_id=
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if writeCORS(w, r) {
		return
	}
	batchID := mux.Vars(r)["batchId"]
	merchantID := r.URL.Query().Get("merchant_id")
	if merchantID == "" {
		writeJSON(w, http.StatusBadRequest, RunResponse{Success: false, Error: "merchant_id is required"})
		return
	}

	batch, err := h.runner.Service().GetBatch(r.Context(), batchID, merchantID)
	if err != nil {
		writeJSON(w, statusFor(err), RunResponse{Success: false, Error: err.Error(), BatchID: batchID})
		return
	}

	writeJSON(w, http.StatusOK, RunResponse{Success: true, BatchID: batchID, Batch: batch})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBatchCompleted), errors.Is(err, ErrBatchFailed),
		errors.Is(err, ErrBatchPaused), errors.Is(err, redisClient.ErrLockHeld):
		return http.StatusConflict
	case errors.Is(err, ErrBatchInterrupted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeCORS sets CORS headers and reports whether the request was a preflight.
func writeCORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("❌ [Bulk] Failed to write response: %v", err)
	}
}
