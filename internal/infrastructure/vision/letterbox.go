package vision

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"plate-detect/internal/domain/entity"
)

// Цвет полей, как в ultralytics.
var padColor = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// letterbox описывает вписывание изображения в квадрат сети с сохранением пропорций.
type letterbox struct {
	size          int     // сторона входа сети
	srcW, srcH    int     // размер исходного изображения
	width, height int     // размер после масштабирования
	padX, padY    int     // поля слева и сверху
	scale         float64 // коэффициент масштабирования
}

func newLetterbox(srcW, srcH, size int) letterbox {
	scale := math.Min(float64(size)/float64(srcW), float64(size)/float64(srcH))
	w := clampInt(int(math.Round(float64(srcW)*scale)), 1, size)
	h := clampInt(int(math.Round(float64(srcH)*scale)), 1, size)

	return letterbox{
		size:   size,
		srcW:   srcW,
		srcH:   srcH,
		width:  w,
		height: h,
		padX:   (size - w) / 2,
		padY:   (size - h) / 2,
		scale:  scale,
	}
}

// toSource переводит рамку cx,cy,w,h из координат сети в координаты исходника.
func (l letterbox) toSource(cx, cy, w, h float32) entity.BoundingBox {
	x1 := (float64(cx) - float64(w)/2 - float64(l.padX)) / l.scale
	y1 := (float64(cy) - float64(h)/2 - float64(l.padY)) / l.scale
	x2 := (float64(cx) + float64(w)/2 - float64(l.padX)) / l.scale
	y2 := (float64(cy) + float64(h)/2 - float64(l.padY)) / l.scale

	x1 = clampFloat(x1, 0, float64(l.srcW))
	y1 = clampFloat(y1, 0, float64(l.srcH))
	x2 = clampFloat(x2, 0, float64(l.srcW))
	y2 = clampFloat(y2, 0, float64(l.srcH))

	return entity.BoundingBox{
		X:      int(math.Round(x1)),
		Y:      int(math.Round(y1)),
		Width:  int(math.Round(x2 - x1)),
		Height: int(math.Round(y2 - y1)),
	}
}

// letterboxImage масштабирует картинку и кладёт её по центру серого квадрата.
func letterboxImage(img image.Image, l letterbox) *image.NRGBA {
	resized := imaging.Resize(img, l.width, l.height, imaging.Linear)
	canvas := imaging.New(l.size, l.size, padColor)
	return imaging.Paste(canvas, resized, image.Pt(l.padX, l.padY))
}

// fillTensor пишет пиксели в dst в порядке CHW (RGB), нормируя в 0..1.
func fillTensor(img *image.NRGBA, dst []float32) error {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	area := w * h
	if len(dst) != 3*area {
		return fmt.Errorf("tensor holds %d values, image needs %d", len(dst), 3*area)
	}

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		offset := y * w
		for x := 0; x < w; x++ {
			i := offset + x
			dst[i] = float32(row[x*4]) / 255.0
			dst[area+i] = float32(row[x*4+1]) / 255.0
			dst[2*area+i] = float32(row[x*4+2]) / 255.0
		}
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
