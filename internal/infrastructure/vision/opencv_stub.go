//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"plate-detect/internal/domain/port"
)

// ErrOpenCVDisabled возвращается, если бинарник собран без тега gocv.
var ErrOpenCVDisabled = errors.New("gocv build tag is not enabled")

// OpenCVLoader заглушка загрузчика OpenCV DNN (без OpenCV).
type OpenCVLoader struct {
	opts   Options
	logger logrus.FieldLogger
}

// NewOpenCVLoader создаёт загрузчик-заглушку.
func NewOpenCVLoader(opts Options, logger logrus.FieldLogger) *OpenCVLoader {
	return &OpenCVLoader{opts: opts, logger: loggerOrDiscard(logger)}
}

// Load возвращает ошибку, если сборка без тега gocv.
func (l *OpenCVLoader) Load(ctx context.Context, modelPath string) (port.Model, error) {
	_ = ctx
	_ = modelPath
	return nil, ErrOpenCVDisabled
}

// Close ничего не делает.
func (l *OpenCVLoader) Close() error {
	return nil
}

var _ port.ModelLoader = (*OpenCVLoader)(nil)
