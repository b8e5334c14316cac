package vision

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"plate-detect/internal/domain/entity"
)

// decodeImage превращает байты в изображение с учётом EXIF-ориентации.
// Нераспознанный формат или пустая картинка дают ошибку.
func decodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, entity.NewStageError(entity.StageDecode, entity.ErrEmptyImage)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, entity.NewStageError(entity.StageDecode, fmt.Errorf("decode image: %w", err))
	}
	if img.Bounds().Empty() {
		return nil, entity.NewStageError(entity.StageDecode, entity.ErrEmptyImage)
	}

	return img, nil
}
