package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"plate-detect/internal/domain/entity"
	"plate-detect/internal/domain/port"
)

// DetectionService находит самый уверенный номерной знак на изображении.
type DetectionService struct {
	loader port.ModelLoader
	logger logrus.FieldLogger
}

// NewDetectionService создаёт сервис поверх загрузчика моделей.
func NewDetectionService(loader port.ModelLoader, logger logrus.FieldLogger) *DetectionService {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	return &DetectionService{
		loader: loader,
		logger: logger,
	}
}

// Detect загружает модель и обрабатывает одно изображение.
func (s *DetectionService) Detect(ctx context.Context, modelPath string, imageData []byte) (*entity.Result, error) {
	if s.loader == nil {
		return nil, errors.New("model loader is not configured")
	}

	model, err := s.loader.Load(ctx, modelPath)
	if err != nil {
		return nil, entity.NewStageError(entity.StageLoad, err)
	}
	s.logger.WithField("model", modelPath).Debug("model loaded")

	return s.DetectWith(ctx, model, imageData)
}

// DetectWith обрабатывает изображение уже загруженной моделью.
func (s *DetectionService) DetectWith(ctx context.Context, model port.Model, imageData []byte) (*entity.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(imageData) == 0 {
		return nil, entity.NewStageError(entity.StageDecode, entity.ErrEmptyImage)
	}

	prediction, err := model.Predict(ctx, imageData)
	if err != nil {
		return nil, entity.NewStageError(entity.StageInference, err)
	}

	result := SelectBest(prediction.Batches)
	s.logTimings(prediction, result)
	return result, nil
}

func (s *DetectionService) logTimings(p *entity.Prediction, r *entity.Result) {
	s.logger.WithFields(logrus.Fields{
		"image":       fmt.Sprintf("%dx%d", p.ImageWidth, p.ImageHeight),
		"batches":     len(p.Batches),
		"decode":      p.Timings.Decode,
		"preprocess":  p.Timings.Preprocess,
		"inference":   p.Timings.Inference,
		"postprocess": p.Timings.Postprocess,
		"confidence":  r.Confidence,
	}).Debug("prediction done")
}

// SelectBest выбирает детекцию с максимальной уверенностью по всем батчам.
// При равенстве побеждает первая встреченная.
func SelectBest(batches []entity.Batch) *entity.Result {
	var best *string
	maxConf := 0.0

	for _, b := range batches {
		for _, d := range b.Detections {
			conf := float64(d.Confidence)
			if !(conf > maxConf) {
				continue
			}
			maxConf = conf
			label := resolveLabel(b.Names, d)
			best = &label
		}
	}

	return entity.NewResult(best, maxConf)
}

func resolveLabel(names entity.Names, d entity.Detection) string {
	if d.HasClass() {
		if name, ok := names.Lookup(d.Class); ok {
			return name
		}
	}
	return entity.PlaceholderLabel
}
