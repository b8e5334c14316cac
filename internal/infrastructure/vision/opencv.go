//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"plate-detect/internal/domain/entity"
	"plate-detect/internal/domain/port"
)

// OpenCVLoader загружает модели через модуль DNN OpenCV.
type OpenCVLoader struct {
	opts   Options
	logger logrus.FieldLogger
}

// NewOpenCVLoader создаёт загрузчик OpenCV DNN.
func NewOpenCVLoader(opts Options, logger logrus.FieldLogger) *OpenCVLoader {
	return &OpenCVLoader{opts: opts, logger: loggerOrDiscard(logger)}
}

// Load читает сеть из файла модели.
func (l *OpenCVLoader) Load(ctx context.Context, modelPath string) (port.Model, error) {
	_ = ctx
	if err := l.opts.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	names, err := classNames(modelPath, l.opts, l.logger)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("opencv could not read model %s", modelPath)
	}

	if l.opts.Device == DeviceCUDA {
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}

	l.logger.WithFields(logrus.Fields{
		"opencv":  gocv.OpenCVVersion(),
		"classes": len(names),
	}).Debug("opencv net ready")

	return &OpenCVModel{net: net, names: names, opts: l.opts}, nil
}

// Close освобождает окружение onnxruntime, если оно поднималось ради метаданных.
func (l *OpenCVLoader) Close() error {
	return destroyEnvironment()
}

// OpenCVModel сеть OpenCV DNN.
type OpenCVModel struct {
	mu    sync.Mutex
	net   gocv.Net
	names entity.Names
	opts  Options
}

// Predict запускает сеть на изображении.
func (m *OpenCVModel) Predict(ctx context.Context, imageData []byte) (*entity.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var timings entity.Timings

	decodeStart := time.Now()
	mat, err := decodeToMat(imageData)
	if err != nil {
		mat.Close()
		return nil, entity.NewStageError(entity.StageDecode, err)
	}
	defer mat.Close()
	timings.Decode = time.Since(decodeStart)

	// Вписываем изображение в квадрат сети с серыми полями.
	prepStart := time.Now()
	lb := newLetterbox(mat.Cols(), mat.Rows(), m.opts.ImageSize)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(lb.width, lb.height), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMat()
	defer padded.Close()
	gocv.CopyMakeBorder(resized, &padded,
		lb.padY, lb.size-lb.height-lb.padY,
		lb.padX, lb.size-lb.width-lb.padX,
		gocv.BorderConstant, color.RGBA{R: 114, G: 114, B: 114, A: 0})

	blob := gocv.BlobFromImage(padded, 1.0/255.0, image.Pt(lb.size, lb.size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()
	timings.Preprocess = time.Since(prepStart)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inferStart := time.Now()
	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()
	if out.Empty() {
		return nil, errors.New("model inference: empty output")
	}
	timings.Inference = time.Since(inferStart)

	postStart := time.Now()
	values, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	dims := out.Size()
	shape := make([]int64, len(dims))
	for i, d := range dims {
		shape[i] = int64(d)
	}

	batches, err := decodeOutput(values, shape, lb, m.opts)
	if err != nil {
		return nil, fmt.Errorf("process predictions: %w", err)
	}
	for i := range batches {
		batches[i].Names = m.names
	}
	timings.Postprocess = time.Since(postStart)

	return &entity.Prediction{
		ImageWidth:  mat.Cols(),
		ImageHeight: mat.Rows(),
		Batches:     batches,
		Timings:     timings,
	}, nil
}

// Close освобождает сеть.
func (m *OpenCVModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	if len(imageData) == 0 {
		return gocv.NewMat(), entity.ErrEmptyImage
	}
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to decode image: %w", err)
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}

var (
	_ port.ModelLoader = (*OpenCVLoader)(nil)
	_ port.Model       = (*OpenCVModel)(nil)
)
