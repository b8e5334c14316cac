package vision

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

const (
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// Options параметры инференса, общие для всех бэкендов.
type Options struct {
	ConfThreshold float32 // порог уверенности, детекция проходит при score > порога
	IoUThreshold  float32 // порог IoU для NMS
	ImageSize     int     // сторона квадратного входа сети
	MaxDetections int     // максимум детекций на изображение после NMS
	NamesFile     string  // файл с именами классов, перекрывает метаданные модели
	Device        string  // cpu или cuda
	Threads       int     // потоки ONNX Runtime, 0 — по умолчанию
	LibraryPath   string  // путь к разделяемой библиотеке onnxruntime
}

// DefaultOptions значения по умолчанию как у ultralytics predict.
func DefaultOptions() Options {
	return Options{
		ConfThreshold: 0.25,
		IoUThreshold:  0.7,
		ImageSize:     640,
		MaxDetections: 300,
		Device:        DeviceCPU,
	}
}

// Validate проверяет параметры.
func (o Options) Validate() error {
	if o.ImageSize <= 0 || o.ImageSize%32 != 0 {
		return fmt.Errorf("image size must be a positive multiple of 32, got %d", o.ImageSize)
	}
	if o.ConfThreshold < 0 || o.ConfThreshold >= 1 {
		return fmt.Errorf("confidence threshold must be in [0, 1), got %v", o.ConfThreshold)
	}
	if o.IoUThreshold <= 0 || o.IoUThreshold > 1 {
		return fmt.Errorf("iou threshold must be in (0, 1], got %v", o.IoUThreshold)
	}
	if o.MaxDetections <= 0 {
		return fmt.Errorf("max detections must be positive, got %d", o.MaxDetections)
	}
	if o.Threads < 0 {
		return fmt.Errorf("threads must not be negative, got %d", o.Threads)
	}
	switch o.Device {
	case DeviceCPU, DeviceCUDA:
	default:
		return fmt.Errorf("unknown device %q", o.Device)
	}
	return nil
}

// loggerOrDiscard подставляет молчащий логгер вместо nil.
func loggerOrDiscard(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger != nil {
		return logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
