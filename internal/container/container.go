package container

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"plate-detect/config"
	app "plate-detect/internal/application"
	"plate-detect/internal/domain/port"
	"plate-detect/internal/infrastructure/storage"
	"plate-detect/internal/infrastructure/vision"
)

type Container struct {
	DetectionService *app.DetectionService
	Models           *storage.MemoryModelCache

	backend io.Closer
}

// loader загрузчик бэкенда, владеющий нативными ресурсами.
type loader interface {
	port.ModelLoader
	io.Closer
}

func New(backend loader, logger logrus.FieldLogger) *Container {
	models := storage.NewMemoryModelCache(backend)
	detectionService := app.NewDetectionService(models, logger)

	return &Container{
		DetectionService: detectionService,
		Models:           models,
		backend:          backend,
	}
}

// Build выбирает бэкенд по конфигурации и собирает сервисы.
func Build(cfg *config.Config, namesFile string, logger logrus.FieldLogger) (*Container, error) {
	opts := Options(cfg)
	opts.NamesFile = namesFile
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var backend loader
	switch cfg.Backend {
	case config.BackendONNX:
		backend = vision.NewOnnxLoader(opts, logger)
	case config.BackendOpenCV:
		backend = vision.NewOpenCVLoader(opts, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	return New(backend, logger), nil
}

// Options переводит конфигурацию в параметры инференса.
func Options(cfg *config.Config) vision.Options {
	return vision.Options{
		ConfThreshold: float32(cfg.ConfThreshold),
		IoUThreshold:  float32(cfg.IoUThreshold),
		ImageSize:     cfg.ImageSize,
		MaxDetections: cfg.MaxDetections,
		Device:        cfg.Device,
		Threads:       cfg.Threads,
		LibraryPath:   cfg.OrtLibrary,
	}
}

// Close освобождает модели, затем окружение бэкенда.
func (c *Container) Close() error {
	return errors.Join(c.Models.Close(), c.backend.Close())
}
