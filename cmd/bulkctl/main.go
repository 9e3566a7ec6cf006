package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "bulkctl",
		Usage: "bulk batch 운영 도구",
		Commands: []*cli.Command{
			{
				Name:  "process",
				Usage: "batch를 동기 실행 (lease 획득 후)",
				Flags: append(batchFlags(),
					&cli.BoolFlag{
						Name:  "no-lock",
						Usage: "Redis lease 없이 실행",
					},
				),
				Action: processAction,
			},
			{
				Name:   "show",
				Usage:  "batch 상태를 JSON으로 출력",
				Flags:  batchFlags(),
				Action: showAction,
			},
			{
				Name:   "enqueue",
				Usage:  "batch를 worker queue에 추가",
				Flags:  batchFlags(),
				Action: enqueueAction,
			},
		},
	}
}

func batchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "env",
			Usage: "환경변수 파일 경로",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:     "batch",
			Usage:    "bulk batch id",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "merchant",
			Usage:    "merchant id",
			Required: true,
		},
	}
}
