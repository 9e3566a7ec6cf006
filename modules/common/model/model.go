package model

import "time"

// Tables
const (
	TableBatches         = "bulk_batches"
	TableGeneratedAssets = "generated_assets"
	TableProducts        = "products"
	TableAuditLogs       = "audit_logs"
)

// Batch status
const (
	StatusPending    = "pending"
	StatusAnalyzing  = "analyzing"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusPaused     = "paused"
)

// ProcessedImage status (display only)
const (
	ImageStatusPending    = "pending"
	ImageStatusProcessing = "processing"
	ImageStatusCompleted  = "completed"
	ImageStatusFailed     = "failed"
)

// Asset types
const (
	AssetTypeBackgroundRemoved = "background_removed"
	AssetTypeLifestyle         = "lifestyle"
)

// BatchErrorImage is the image key used for batch-level failures in the error log.
const BatchErrorImage = "batch"

// Batch - bulk_batches 테이블 구조
type Batch struct {
	ID             string         `json:"id"`
	MerchantID     string         `json:"merchant_id"`
	Status         string         `json:"status"`
	SourceURLs     []string       `json:"source_urls"`
	ProductGroups  []ProductGroup `json:"product_groups"`
	Config         BatchConfig    `json:"config"`
	TotalImages    int            `json:"total_images"`
	ProcessedCount int            `json:"processed_count"`
	FailedCount    int            `json:"failed_count"`
	CurrentProduct *string        `json:"current_product"`
	ErrorLog       []ErrorEntry   `json:"error_log"`
	CompletedAt    *time.Time     `json:"completed_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      *time.Time     `json:"updated_at"`
}

// BatchConfig - bulk_batches.config JSONB 구조
type BatchConfig struct {
	GenerateLifestyle bool `json:"generate_lifestyle"`
	RemoveBackground  bool `json:"remove_background"`
	CreateProducts    bool `json:"create_products"`
}

// ErrorEntry - error_log 항목
type ErrorEntry struct {
	Image string `json:"image"`
	Error string `json:"error"`
}

// ProductGroup - product_groups JSONB 항목
type ProductGroup struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Category        string           `json:"category"`
	MainImage       string           `json:"mainImage"`
	Images          []string         `json:"images"`
	ProcessedImages []ProcessedImage `json:"processedImages,omitempty"`
}

// ProcessedImage - 그룹 내 이미지별 enrichment 결과
type ProcessedImage struct {
	Original          string `json:"original"`
	BackgroundRemoved string `json:"background_removed,omitempty"`
	Lifestyle         string `json:"lifestyle,omitempty"`
	Status            string `json:"status"`
}

// Variants returns the generated URLs of this image, in a stable order.
func (p ProcessedImage) Variants() []string {
	variants := make([]string, 0, 2)
	if p.BackgroundRemoved != "" {
		variants = append(variants, p.BackgroundRemoved)
	}
	if p.Lifestyle != "" {
		variants = append(variants, p.Lifestyle)
	}
	return variants
}

// GeneratedAsset - generated_assets 테이블 구조
type GeneratedAsset struct {
	MerchantID   string  `json:"merchant_id"`
	BatchID      string  `json:"batch_id,omitempty"`
	AssetType    string  `json:"asset_type"`
	SourceURL    string  `json:"source_url"`
	GeneratedURL string  `json:"generated_url"`
	Prompt       string  `json:"prompt"`
	ProductID    *string `json:"product_id"`
}

// DraftProduct - products 테이블에 저장되는 draft 상품
type DraftProduct struct {
	MerchantID     string   `json:"merchant_id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Price          *float64 `json:"price"`
	Published      bool     `json:"published"`
	Images         []string `json:"images"`
	MainImage      string   `json:"main_image"`
	SuggestedSizes []string `json:"sizes"`
	Gender         string   `json:"gender"`
	BatchID        string   `json:"batch_id,omitempty"`
}

// AuditEntry - audit_logs 테이블 구조
type AuditEntry struct {
	MerchantID string                 `json:"merchant_id"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Action     string                 `json:"action"`
	Details    map[string]interface{} `json:"details"`
}
