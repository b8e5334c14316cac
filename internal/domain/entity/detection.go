package entity

import "time"

// NoClass означает, что модель не сообщила индекс класса.
const NoClass = -1

// Detection один кандидат на номерной знак из выхода модели.
type Detection struct {
	Confidence float32     // уверенность 0..1
	Class      int         // индекс класса или NoClass
	Box        BoundingBox // рамка, редуктором не используется
}

// HasClass сообщает, есть ли у детекции индекс класса.
func (d Detection) HasClass() bool {
	return d.Class != NoClass
}

// Names таблица имён классов модели.
type Names map[int]string

// Lookup возвращает имя класса, если таблица его содержит.
func (n Names) Lookup(class int) (string, bool) {
	if n == nil {
		return "", false
	}
	name, ok := n[class]
	return name, ok
}

// Batch хранит детекции одного изображения из выходного батча модели.
type Batch struct {
	Detections []Detection
	Names      Names // nil, если модель не отдаёт имена классов
}

// Prediction итог прямого прохода модели.
type Prediction struct {
	ImageWidth  int     // ширина исходного изображения
	ImageHeight int     // высота исходного изображения
	Batches     []Batch // батчи детекций
	Timings     Timings
}

// Timings длительности стадий обработки.
type Timings struct {
	Decode      time.Duration
	Preprocess  time.Duration
	Inference   time.Duration
	Postprocess time.Duration
}
