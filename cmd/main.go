package main

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"plate-detect/config"
	cli "plate-detect/internal/api"
	"plate-detect/internal/container"
	"plate-detect/internal/domain/entity"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// stdout занят строкой результата, логи только в stderr
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(cfg.LogLevel)

	build := func(runCfg *config.Config, namesFile string) (cli.Detector, io.Closer, error) {
		appContainer, err := container.Build(runCfg, namesFile, logger)
		if err != nil {
			return nil, nil, err
		}
		return appContainer.DetectionService, appContainer, nil
	}

	cmd := cli.NewCommand(cfg, build, cli.Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		entry := logger.WithError(err)
		if stage, ok := entity.StageOf(err); ok {
			entry = entry.WithField("stage", stage)
		}
		entry.Error("detection failed")
		os.Exit(1)
	}
}
