package vision

import (
	"fmt"
	"math"
	"sort"

	"plate-detect/internal/domain/entity"
)

// outputLayout форма выхода головы YOLOv8/YOLO11: [batch, 4+nc, anchors]
// или транспонированная [batch, anchors, 4+nc].
type outputLayout struct {
	batch      int
	channels   int
	anchors    int
	transposed bool
	// endToEnd выход экспорта со встроенным NMS: [batch, rows, 6],
	// строка x1, y1, x2, y2, score, class.
	endToEnd bool
}

// Столбцов в строке выхода со встроенным NMS.
const endToEndColumns = 6

// parseLayout определяет раскладку выхода. size нужен, чтобы отличить
// транспонированную голову (строк ровно anchorCount(size)) от выхода
// со встроенным NMS.
func parseLayout(shape []int64, size int) (outputLayout, error) {
	dims := make([]int, 0, 3)
	for _, d := range shape {
		dims = append(dims, int(d))
	}
	if len(dims) == 2 {
		dims = append([]int{1}, dims...)
	}
	if len(dims) != 3 {
		return outputLayout{}, fmt.Errorf("unexpected output rank %d, shape %v", len(shape), shape)
	}

	rows, cols := dims[1], dims[2]
	if cols < rows && rows != anchorCount(size) {
		switch cols {
		case endToEndColumns:
			if dims[0] <= 0 {
				return outputLayout{}, fmt.Errorf("unexpected output shape %v", shape)
			}
			return outputLayout{batch: dims[0], channels: cols, anchors: rows, transposed: true, endToEnd: true}, nil
		case endToEndColumns + 1:
			return outputLayout{}, fmt.Errorf("unsupported output layout %v", shape)
		}
	}

	l := outputLayout{batch: dims[0], channels: dims[1], anchors: dims[2]}
	if l.channels > l.anchors {
		l.channels, l.anchors = l.anchors, l.channels
		l.transposed = true
	}
	if l.batch <= 0 || l.channels < 5 || l.anchors <= 0 {
		return outputLayout{}, fmt.Errorf("unexpected output shape %v", shape)
	}

	return l, nil
}

// anchorCount число якорей для входа size при шагах 8, 16 и 32.
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		n += (size / stride) * (size / stride)
	}
	return n
}

type candidate struct {
	box   [4]float32 // x1, y1, x2, y2 в координатах сети
	score float32
	class int
}

// decodeOutput разбирает сырой выход сети в батчи детекций.
func decodeOutput(data []float32, shape []int64, lb letterbox, opts Options) ([]entity.Batch, error) {
	layout, err := parseLayout(shape, opts.ImageSize)
	if err != nil {
		return nil, err
	}
	perBatch := layout.channels * layout.anchors
	if len(data) != layout.batch*perBatch {
		return nil, fmt.Errorf("output holds %d values, shape %v needs %d", len(data), shape, layout.batch*perBatch)
	}

	batches := make([]entity.Batch, 0, layout.batch)
	for b := 0; b < layout.batch; b++ {
		values := data[b*perBatch : (b+1)*perBatch]
		var kept []candidate
		if layout.endToEnd {
			kept = topCandidates(collectEndToEnd(values, layout, opts.ConfThreshold), opts.MaxDetections)
		} else {
			candidates := collectCandidates(values, layout, opts.ConfThreshold)
			kept = nonMaxSuppression(candidates, opts.IoUThreshold, opts.MaxDetections)
		}

		detections := make([]entity.Detection, 0, len(kept))
		for _, c := range kept {
			cx := (c.box[0] + c.box[2]) / 2
			cy := (c.box[1] + c.box[3]) / 2
			detections = append(detections, entity.Detection{
				Confidence: c.score,
				Class:      c.class,
				Box:        lb.toSource(cx, cy, c.box[2]-c.box[0], c.box[3]-c.box[1]),
			})
		}
		batches = append(batches, entity.Batch{Detections: detections})
	}

	return batches, nil
}

func collectCandidates(values []float32, l outputLayout, threshold float32) []candidate {
	at := func(channel, anchor int) float32 {
		if l.transposed {
			return values[anchor*l.channels+channel]
		}
		return values[channel*l.anchors+anchor]
	}

	candidates := make([]candidate, 0, 64)
	for a := 0; a < l.anchors; a++ {
		class, score := 0, at(4, a)
		for c := 5; c < l.channels; c++ {
			if v := at(c, a); v > score {
				class, score = c-4, v
			}
		}
		if !(score > threshold) {
			continue
		}

		cx, cy, w, h := at(0, a), at(1, a), at(2, a), at(3, a)
		candidates = append(candidates, candidate{
			box:   [4]float32{cx - w/2, cy - h/2, cx + w/2, cy + h/2},
			score: score,
			class: class,
		})
	}
	return candidates
}

// collectEndToEnd читает строки выхода со встроенным NMS.
func collectEndToEnd(values []float32, l outputLayout, threshold float32) []candidate {
	candidates := make([]candidate, 0, 16)
	for r := 0; r < l.anchors; r++ {
		row := values[r*l.channels : (r+1)*l.channels]
		score := row[4]
		if !(score > threshold) {
			continue
		}

		class := int(math.Round(float64(row[5])))
		if class < 0 {
			class = entity.NoClass
		}
		candidates = append(candidates, candidate{
			box:   [4]float32{row[0], row[1], row[2], row[3]},
			score: score,
			class: class,
		})
	}
	return candidates
}

// topCandidates упорядочивает уже отфильтрованные рамки по score и обрезает до limit.
func topCandidates(candidates []candidate, limit int) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// nonMaxSuppression подавляет пересекающиеся рамки одного класса.
// Сортировка стабильная: при равных score порядок якорей сохраняется.
func nonMaxSuppression(candidates []candidate, iouThreshold float32, limit int) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	kept := make([]candidate, 0, len(candidates))
	suppressed := make([]bool, len(candidates))
	for i := range candidates {
		if suppressed[i] {
			continue
		}
		kept = append(kept, candidates[i])
		if limit > 0 && len(kept) == limit {
			break
		}
		for j := i + 1; j < len(candidates); j++ {
			if suppressed[j] || candidates[j].class != candidates[i].class {
				continue
			}
			if iou(candidates[i].box, candidates[j].box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

func iou(a, b [4]float32) float32 {
	x1 := max(a[0], b[0])
	y1 := max(a[1], b[1])
	x2 := min(a[2], b[2])
	y2 := min(a[3], b[3])

	inter := max(0, x2-x1) * max(0, y2-y1)
	union := (a[2]-a[0])*(a[3]-a[1]) + (b[2]-b[0])*(b[3]-b[1]) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
