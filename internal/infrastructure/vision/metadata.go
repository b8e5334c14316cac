package vision

import (
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"plate-detect/internal/domain/entity"
)

// classNames возвращает таблицу имён классов: из файла --names, если он задан,
// иначе из метаданных модели. Отсутствие имён не ошибка.
func classNames(modelPath string, opts Options, logger logrus.FieldLogger) (entity.Names, error) {
	if opts.NamesFile != "" {
		return LoadNamesFile(opts.NamesFile)
	}
	return metadataNames(modelPath, opts.LibraryPath, logger), nil
}

// metadataNames читает ключ names из метаданных ONNX-модели.
// Метаданные читаются через onnxruntime, поэтому без библиотеки имён нет.
func metadataNames(modelPath, libraryPath string, logger logrus.FieldLogger) entity.Names {
	if err := initEnvironment(libraryPath); err != nil {
		logger.Debugf("onnxruntime unavailable, no class names from metadata: %v", err)
		return nil
	}

	meta, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		logger.Debugf("model metadata unavailable: %v", err)
		return nil
	}
	defer meta.Destroy()

	value, ok, err := meta.LookupCustomMetadataMap("names")
	if err != nil || !ok {
		return nil
	}

	names, err := ParseNames([]byte(value))
	if err != nil {
		logger.Warnf("ignoring class names from metadata: %v", err)
		return nil
	}
	return names
}
