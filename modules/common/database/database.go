package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/supabase-community/supabase-go"
	"quel-catalog-server/modules/common/config"
	"quel-catalog-server/modules/common/model"
)

// ErrNotFound is returned when a select-by-id matches no row.
var ErrNotFound = errors.New("record not found")

type Client struct {
	supabase *supabase.Client
}

// NewClient - Database 클라이언트 생성
func NewClient(cfg *config.Config) (*Client, error) {
	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	return &Client{
		supabase: supabaseClient,
	}, nil
}

// GetBatch - bulk_batches 에서 merchant 범위로 batch 조회
func (c *Client) GetBatch(ctx context.Context, merchantID, batchID string) (*model.Batch, error) {
	log.Printf("🔍 Fetching batch from Supabase: %s (merchant: %s)", batchID, merchantID)

	var batches []model.Batch
	_, err := c.supabase.From(model.TableBatches).
		Select("*", "", false).
		Eq("id", batchID).
		Eq("merchant_id", merchantID).
		ExecuteTo(&batches)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", model.TableBatches, err)
	}

	if len(batches) == 0 {
		return nil, fmt.Errorf("batch %s: %w", batchID, ErrNotFound)
	}

	batch := &batches[0]
	log.Printf("✅ Batch fetched: %s (status: %s, total_images: %d)", batch.ID, batch.Status, batch.TotalImages)
	return batch, nil
}

// UpdateBatch - batch 부분 업데이트 (field-level, unconditional)
func (c *Client) UpdateBatch(ctx context.Context, merchantID, batchID string, fields map[string]interface{}) error {
	updateData := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updateData[k] = v
	}
	updateData["updated_at"] = time.Now().UTC()

	_, _, err := c.supabase.From(model.TableBatches).
		Update(updateData, "minimal", "").
		Eq("id", batchID).
		Eq("merchant_id", merchantID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update batch %s: %w", batchID, err)
	}
	return nil
}

// Insert - 테이블에 레코드 생성 후 생성된 id 반환
func (c *Client) Insert(ctx context.Context, table string, record interface{}) (string, error) {
	data, _, err := c.supabase.From(table).
		Insert(record, false, "", "representation", "").
		Execute()
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return "", fmt.Errorf("failed to parse %s insert response: %w", table, err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no %s record returned", table)
	}

	id, ok := rows[0]["id"]
	if !ok || id == nil {
		return "", fmt.Errorf("%s insert response has no id", table)
	}
	return formatID(id), nil
}

// UpdateWhere - match 조건에 맞는 모든 행 업데이트
func (c *Client) UpdateWhere(ctx context.Context, table string, match map[string]string, fields map[string]interface{}) error {
	if len(match) == 0 {
		return fmt.Errorf("refusing to update %s without a filter", table)
	}

	query := c.supabase.From(table).Update(fields, "minimal", "")
	for column, value := range match {
		query = query.Eq(column, value)
	}

	if _, _, err := query.Execute(); err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	return nil
}

func formatID(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}
