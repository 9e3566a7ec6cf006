package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"quel-catalog-server/modules/bulk"
	"quel-catalog-server/modules/common/config"
	redisClient "quel-catalog-server/modules/common/redis"
)

func processAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadConfigFrom(cmd.String("env"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var rdb *redis.Client
	if !cmd.Bool("no-lock") {
		rdb, err = redisClient.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("%w; rerun with --no-lock only if no worker can pick up this batch", err)
		}
		defer rdb.Close()
	}

	service, cleanup, err := bulk.NewServiceFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := bulk.NewRunner(service, rdb, cfg.BatchLockTTL).Run(ctx, cmd.String("batch"), cmd.String("merchant"))
	if err != nil {
		return err
	}
	if err := printJSON(result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("batch %s failed", cmd.String("batch"))
	}
	return nil
}

func showAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadConfigFrom(cmd.String("env"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	service, cleanup, err := bulk.NewServiceFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	batch, err := service.GetBatch(ctx, cmd.String("batch"), cmd.String("merchant"))
	if err != nil {
		return err
	}
	return printJSON(batch)
}

func enqueueAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadConfigFrom(cmd.String("env"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	rdb, err := redisClient.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	position, err := redisClient.Enqueue(ctx, rdb, redisClient.Job{
		BatchID:    cmd.String("batch"),
		MerchantID: cmd.String("merchant"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("enqueued %s on %s (position %d)\n", cmd.String("batch"), redisClient.QueueKey, position)
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
