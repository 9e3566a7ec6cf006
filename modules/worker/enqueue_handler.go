package worker

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	redisClient "quel-catalog-server/modules/common/redis"
)

// EnqueueHandler - bulk batch enqueue handler
type EnqueueHandler struct {
	rdb      *redis.Client
	validate *validator.Validate
}

// EnqueueRequest - Enqueue 요청
type EnqueueRequest struct {
	MerchantID string `json:"merchant_id" validate:"required"`
}

// EnqueueResponse - Enqueue 응답
type EnqueueResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	BatchID       string `json:"batch_id,omitempty"`
	Queue         string `json:"queue,omitempty"`
	QueuePosition int64  `json:"queuePosition,omitempty"`
}

// NewEnqueueHandler - EnqueueHandler 생성
func NewEnqueueHandler(rdb *redis.Client, validate *validator.Validate) *EnqueueHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &EnqueueHandler{rdb: rdb, validate: validate}
}

// RegisterRoutes - 라우트 등록
func (h *EnqueueHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/bulk/batches/{batchId}/process", h.HandleEnqueue).Methods("POST", "OPTIONS")
	log.Println("✅ Enqueue routes registered: POST /api/bulk/batches/{batchId}/process")
}

// HandleEnqueue - POST /api/bulk/batches/{batchId}/process
func (h *EnqueueHandler) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	batchID := mux.Vars(r)["batchId"]

	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ [Enqueue] Invalid request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(EnqueueResponse{Success: false, Error: "Invalid request body"})
		return
	}

	job := redisClient.Job{BatchID: batchID, MerchantID: req.MerchantID}
	if err := h.validate.Struct(job); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(EnqueueResponse{Success: false, Error: "batch id and merchant_id are required"})
		return
	}

	log.Printf("📥 [Enqueue] Received batch: %s (merchant: %s)", batchID, req.MerchantID)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	queueLen, err := redisClient.Enqueue(ctx, h.rdb, job)
	if err != nil {
		log.Printf("❌ [Enqueue] %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(EnqueueResponse{Success: false, Error: err.Error()})
		return
	}

	log.Printf("✅ [Enqueue] Batch %s enqueued successfully (position: %d)", batchID, queueLen)

	json.NewEncoder(w).Encode(EnqueueResponse{
		Success:       true,
		Message:       "Batch enqueued successfully",
		BatchID:       batchID,
		Queue:         redisClient.QueueKey,
		QueuePosition: queueLen,
	})
}
