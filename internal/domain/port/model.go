package port

import (
	"context"

	"plate-detect/internal/domain/entity"
)

// Model загруженная модель детекции
type Model interface {
	// Predict декодирует изображение и выполняет прямой проход модели
	Predict(ctx context.Context, imageData []byte) (*entity.Prediction, error)

	// Close освобождает ресурсы модели
	Close() error
}

// ModelLoader загружает модель из артефакта на диске
type ModelLoader interface {
	// Load читает артефакт модели по пути
	Load(ctx context.Context, modelPath string) (Model, error)
}
