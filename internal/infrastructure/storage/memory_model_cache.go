package storage

import (
	"context"
	"errors"
	"sync"

	"plate-detect/internal/domain/port"
)

// MemoryModelCache in-memory кэш загруженных моделей
type MemoryModelCache struct {
	mu     sync.RWMutex
	loader port.ModelLoader
	models map[string]port.Model
	closed bool
}

// NewMemoryModelCache создаёт кэш поверх загрузчика
func NewMemoryModelCache(loader port.ModelLoader) *MemoryModelCache {
	return &MemoryModelCache{
		loader: loader,
		models: make(map[string]port.Model),
	}
}

// Load возвращает модель по пути, загружает её если ещё нет в кэше
func (c *MemoryModelCache) Load(ctx context.Context, modelPath string) (port.Model, error) {
	c.mu.RLock()
	model, exists := c.models[modelPath]
	closed := c.closed
	c.mu.RUnlock()

	if closed {
		return nil, errors.New("model cache is closed")
	}
	if exists {
		return model, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("model cache is closed")
	}
	// Модель могли загрузить, пока ждали блокировку.
	if model, exists := c.models[modelPath]; exists {
		return model, nil
	}

	model, err := c.loader.Load(ctx, modelPath)
	if err != nil {
		return nil, err
	}
	c.models[modelPath] = model

	return model, nil
}

// Len возвращает количество моделей в кэше
func (c *MemoryModelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}

// Close закрывает все модели и очищает кэш
func (c *MemoryModelCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for path, model := range c.models {
		if err := model.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.models, path)
	}

	return errors.Join(errs...)
}

// Проверка реализации интерфейса
var _ port.ModelLoader = (*MemoryModelCache)(nil)
