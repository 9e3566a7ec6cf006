package bulk

import (
	"context"
	"fmt"
	"log"

	"quel-catalog-server/modules/common/config"
	"quel-catalog-server/modules/common/database"
	"quel-catalog-server/modules/common/gemini"
	"quel-catalog-server/modules/common/storage"
)

// NewServiceFromConfig wires the production collaborators: Supabase for
// persistence, the configured storage backend, and the Gemini clients. The
// returned cleanup closes the text client.
func NewServiceFromConfig(ctx context.Context, cfg *config.Config) (*Service, func(), error) {
	dbClient, err := database.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	uploader, err := storage.NewUploader(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create uploader: %w", err)
	}

	geminiClient, err := gemini.NewClient(ctx, cfg, uploader)
	if err != nil {
		return nil, nil, err
	}

	textClient, err := gemini.NewTextClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := textClient.Close(); err != nil {
			log.Printf("⚠️  Failed to close Gemini text client: %v", err)
		}
	}

	log.Println("✅ Bulk service initialized")
	return NewService(dbClient, geminiClient, geminiClient, textClient, OptionsFromConfig(cfg)), cleanup, nil
}
