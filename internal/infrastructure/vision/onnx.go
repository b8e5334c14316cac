package vision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"plate-detect/internal/domain/entity"
	"plate-detect/internal/domain/port"
)

// OnnxLoader загружает YOLO-модели в формате ONNX через ONNX Runtime.
type OnnxLoader struct {
	opts   Options
	logger logrus.FieldLogger
}

// NewOnnxLoader создаёт загрузчик с заданными параметрами инференса.
func NewOnnxLoader(opts Options, logger logrus.FieldLogger) *OnnxLoader {
	return &OnnxLoader{opts: opts, logger: loggerOrDiscard(logger)}
}

// Load открывает сессию ONNX Runtime для модели.
func (l *OnnxLoader) Load(ctx context.Context, modelPath string) (port.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.opts.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if err := initEnvironment(l.opts.LibraryPath); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model inputs: %w", err)
	}
	if len(inputs) != 1 || len(outputs) == 0 {
		return nil, fmt.Errorf("expected one input and at least one output, got %d and %d", len(inputs), len(outputs))
	}

	size := l.inputSize(inputs[0].Dimensions)
	outputShape, err := resolveOutputShape(outputs[0].Dimensions, size)
	if err != nil {
		return nil, err
	}

	names, err := classNames(modelPath, l.opts, l.logger)
	if err != nil {
		return nil, err
	}

	options, err := l.sessionOptions()
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"input":   inputs[0].Name,
		"output":  outputs[0].Name,
		"shape":   outputShape.String(),
		"classes": len(names),
	}).Debug("onnx session ready")

	opts := l.opts
	opts.ImageSize = size
	return &OnnxModel{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		names:   names,
		opts:    opts,
	}, nil
}

// Close освобождает окружение ONNX Runtime.
func (l *OnnxLoader) Close() error {
	return destroyEnvironment()
}

// inputSize берёт размер из статической формы входа, если она задана.
func (l *OnnxLoader) inputSize(dims ort.Shape) int {
	size := l.opts.ImageSize
	if len(dims) != 4 || dims[2] <= 0 || dims[3] <= 0 {
		return size
	}
	if dims[2] != dims[3] {
		l.logger.Warnf("non-square model input %v, using %d", dims, dims[2])
	}
	if int(dims[2]) != size {
		l.logger.Warnf("model input is fixed to %d, ignoring image size %d", dims[2], size)
	}
	return int(dims[2])
}

func (l *OnnxLoader) sessionOptions() (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}

	if l.opts.Threads > 0 {
		if err := options.SetIntraOpNumThreads(l.opts.Threads); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("set intra-op threads: %w", err)
		}
		if err := options.SetInterOpNumThreads(l.opts.Threads); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("set inter-op threads: %w", err)
		}
	}

	if l.opts.Device == DeviceCUDA {
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			options.Destroy()
			return nil, fmt.Errorf("error creating cuda options: %w", err)
		}
		defer cudaOptions.Destroy()

		if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("enable cuda: %w", err)
		}
	}

	return options, nil
}

// resolveOutputShape подставляет конкретные значения вместо динамических осей.
func resolveOutputShape(dims ort.Shape, size int) (ort.Shape, error) {
	shape := make(ort.Shape, len(dims))
	copy(shape, dims)
	if len(shape) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}

	if shape[0] <= 0 {
		shape[0] = 1
	}
	dynamic := 0
	for i := 1; i < 3; i++ {
		if shape[i] <= 0 {
			shape[i] = int64(anchorCount(size))
			dynamic++
		}
	}
	if dynamic > 1 {
		return nil, fmt.Errorf("output shape %v has dynamic class axis", dims)
	}
	return shape, nil
}

// OnnxModel загруженная сессия с входным и выходным тензорами.
type OnnxModel struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	names   entity.Names
	opts    Options
}

// Predict декодирует изображение, вписывает его во вход сети и запускает сессию.
func (m *OnnxModel) Predict(ctx context.Context, imageData []byte) (*entity.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var timings entity.Timings

	decodeStart := time.Now()
	img, err := decodeImage(imageData)
	if err != nil {
		return nil, err
	}
	timings.Decode = time.Since(decodeStart)

	prepStart := time.Now()
	bounds := img.Bounds()
	lb := newLetterbox(bounds.Dx(), bounds.Dy(), m.opts.ImageSize)
	if err := fillTensor(letterboxImage(img, lb), m.input.GetData()); err != nil {
		return nil, fmt.Errorf("prepare input buffer: %w", err)
	}
	timings.Preprocess = time.Since(prepStart)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inferStart := time.Now()
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}
	timings.Inference = time.Since(inferStart)

	postStart := time.Now()
	batches, err := decodeOutput(m.output.GetData(), m.output.GetShape(), lb, m.opts)
	if err != nil {
		return nil, fmt.Errorf("process predictions: %w", err)
	}
	for i := range batches {
		batches[i].Names = m.names
	}
	timings.Postprocess = time.Since(postStart)

	return &entity.Prediction{
		ImageWidth:  bounds.Dx(),
		ImageHeight: bounds.Dy(),
		Batches:     batches,
		Timings:     timings,
	}, nil
}

// Close уничтожает сессию и тензоры.
func (m *OnnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.session != nil {
		errs = append(errs, m.session.Destroy())
		m.session = nil
	}
	if m.input != nil {
		errs = append(errs, m.input.Destroy())
		m.input = nil
	}
	if m.output != nil {
		errs = append(errs, m.output.Destroy())
		m.output = nil
	}
	return errors.Join(errs...)
}

var (
	_ port.ModelLoader = (*OnnxLoader)(nil)
	_ port.Model       = (*OnnxModel)(nil)
)
