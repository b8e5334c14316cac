package app

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"plate-detect/internal/domain/entity"
	"plate-detect/internal/domain/port"
)

type fakeModel struct {
	prediction *entity.Prediction
	err        error
	calls      int
}

func (m *fakeModel) Predict(ctx context.Context, imageData []byte) (*entity.Prediction, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.prediction, nil
}

func (m *fakeModel) Close() error { return nil }

type fakeLoader struct {
	model *fakeModel
	err   error
	paths []string
}

func (l *fakeLoader) Load(ctx context.Context, modelPath string) (port.Model, error) {
	l.paths = append(l.paths, modelPath)
	if l.err != nil {
		return nil, l.err
	}
	return l.model, nil
}

func detections(confs ...float32) []entity.Detection {
	out := make([]entity.Detection, 0, len(confs))
	for _, c := range confs {
		out = append(out, entity.Detection{Confidence: c, Class: 0})
	}
	return out
}

func newService(loader port.ModelLoader) *DetectionService {
	logger, _ := logtest.NewNullLogger()
	return NewDetectionService(loader, logger)
}

func TestDetect_SingleNamedDetection(t *testing.T) {
	loader := &fakeLoader{model: &fakeModel{prediction: &entity.Prediction{
		Batches: []entity.Batch{{
			Detections: detections(0.873),
			Names:      entity.Names{0: "plate"},
		}},
	}}}

	res, err := newService(loader).Detect(context.Background(), "best.onnx", []byte("img"))
	require.NoError(t, err)
	require.NotNil(t, res.PlateNumber)
	require.Equal(t, "plate", *res.PlateNumber)
	require.Equal(t, entity.Confidence(87.3), res.Confidence)
	require.Equal(t, []string{"best.onnx"}, loader.paths)
}

func TestDetect_NoClassNames(t *testing.T) {
	loader := &fakeLoader{model: &fakeModel{prediction: &entity.Prediction{
		Batches: []entity.Batch{{Detections: detections(0.2, 0.91, 0.5)}},
	}}}

	res, err := newService(loader).Detect(context.Background(), "best.onnx", []byte("img"))
	require.NoError(t, err)
	require.Equal(t, entity.PlaceholderLabel, *res.PlateNumber)
	require.Equal(t, entity.Confidence(91), res.Confidence)
}

func TestDetect_NoDetections(t *testing.T) {
	loader := &fakeLoader{model: &fakeModel{prediction: &entity.Prediction{
		Batches: []entity.Batch{{Names: entity.Names{0: "plate"}}},
	}}}

	res, err := newService(loader).Detect(context.Background(), "best.onnx", []byte("img"))
	require.NoError(t, err)
	require.Nil(t, res.PlateNumber)
	require.Equal(t, entity.Confidence(0), res.Confidence)
}

func TestDetect_LoadError(t *testing.T) {
	loader := &fakeLoader{err: errors.New("model file not found")}

	_, err := newService(loader).Detect(context.Background(), "missing.onnx", []byte("img"))
	require.Error(t, err)
	stage, ok := entity.StageOf(err)
	require.True(t, ok)
	require.Equal(t, entity.StageLoad, stage)
}

func TestDetect_InferenceError(t *testing.T) {
	cause := errors.New("shape mismatch")
	loader := &fakeLoader{model: &fakeModel{err: cause}}

	_, err := newService(loader).Detect(context.Background(), "best.onnx", []byte("img"))
	require.ErrorIs(t, err, cause)
	stage, _ := entity.StageOf(err)
	require.Equal(t, entity.StageInference, stage)
}

func TestDetect_DecodeErrorKeepsStage(t *testing.T) {
	loader := &fakeLoader{model: &fakeModel{err: entity.NewStageError(entity.StageDecode, errors.New("bad jpeg"))}}

	_, err := newService(loader).Detect(context.Background(), "best.onnx", []byte("img"))
	stage, _ := entity.StageOf(err)
	require.Equal(t, entity.StageDecode, stage)
}

func TestDetectWith_EmptyImage(t *testing.T) {
	model := &fakeModel{}

	_, err := newService(nil).DetectWith(context.Background(), model, nil)
	require.ErrorIs(t, err, entity.ErrEmptyImage)
	require.Zero(t, model.calls)
}

func TestDetectWith_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(nil).DetectWith(ctx, &fakeModel{}, []byte("img"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestDetect_NoLoader(t *testing.T) {
	_, err := newService(nil).Detect(context.Background(), "best.onnx", []byte("img"))
	require.Error(t, err)
}

func TestDetect_LogsTimings(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	loader := &fakeLoader{model: &fakeModel{prediction: &entity.Prediction{ImageWidth: 640, ImageHeight: 480}}}

	_, err := NewDetectionService(loader, logger).Detect(context.Background(), "best.onnx", []byte("img"))
	require.NoError(t, err)

	last := hook.LastEntry()
	require.NotNil(t, last)
	require.Equal(t, "prediction done", last.Message)
	require.Equal(t, "640x480", last.Data["image"])
}

func TestSelectBest_AcrossBatches(t *testing.T) {
	batches := []entity.Batch{
		{Detections: detections(0.3, 0.4), Names: entity.Names{0: "first"}},
		{Detections: detections(0.8), Names: entity.Names{0: "second"}},
		{Detections: detections(0.5)},
	}

	res := SelectBest(batches)
	require.Equal(t, "second", *res.PlateNumber)
	require.Equal(t, entity.Confidence(80), res.Confidence)
}

func TestSelectBest_TieKeepsFirst(t *testing.T) {
	batches := []entity.Batch{
		{Detections: []entity.Detection{
			{Confidence: 0.7, Class: 0},
			{Confidence: 0.7, Class: 1},
		}, Names: entity.Names{0: "plate", 1: "car"}},
		{Detections: []entity.Detection{{Confidence: 0.7, Class: 1}}, Names: entity.Names{1: "other"}},
	}

	res := SelectBest(batches)
	require.Equal(t, "plate", *res.PlateNumber)
}

func TestSelectBest_LabelFallbacks(t *testing.T) {
	noClass := SelectBest([]entity.Batch{{
		Detections: []entity.Detection{{Confidence: 0.6, Class: entity.NoClass}},
		Names:      entity.Names{0: "plate"},
	}})
	require.Equal(t, entity.PlaceholderLabel, *noClass.PlateNumber)

	unknownClass := SelectBest([]entity.Batch{{
		Detections: []entity.Detection{{Confidence: 0.6, Class: 7}},
		Names:      entity.Names{0: "plate"},
	}})
	require.Equal(t, entity.PlaceholderLabel, *unknownClass.PlateNumber)

	emptyName := SelectBest([]entity.Batch{{
		Detections: []entity.Detection{{Confidence: 0.6, Class: 0}},
		Names:      entity.Names{0: ""},
	}})
	require.Nil(t, emptyName.PlateNumber)
	require.Equal(t, entity.Confidence(60), emptyName.Confidence)
}

func TestSelectBest_ZeroConfidenceIgnored(t *testing.T) {
	res := SelectBest([]entity.Batch{{Detections: detections(0)}})
	require.Nil(t, res.PlateNumber)
	require.Equal(t, entity.Confidence(0), res.Confidence)
}
