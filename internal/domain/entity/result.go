package entity

import (
	"strconv"
	"strings"
)

// PlaceholderLabel подставляется, когда имя класса получить нельзя.
// Распознавание текста номера не выполняется.
const PlaceholderLabel = "DETECTED"

// Confidence уверенность в процентах, округлённая до двух знаков.
type Confidence float64

// NewConfidence переводит уверенность 0..1 в проценты и округляет до двух знаков.
func NewConfidence(score float64) Confidence {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(score*100, 'f', 2, 64), 64)
	if err != nil {
		return 0
	}
	return Confidence(rounded)
}

// String форматирует число всегда с десятичной точкой: 0.0, 87.3, 91.0.
func (c Confidence) String() string {
	s := strconv.FormatFloat(float64(c), 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// MarshalJSON кодирует уверенность так же, как String.
func (c Confidence) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// Result — единственный выходной артефакт запуска.
type Result struct {
	PlateNumber *string    `json:"plate_number"`
	Confidence  Confidence `json:"confidence"`
}

// NewResult собирает результат из лучшей метки и её уверенности 0..1.
func NewResult(label *string, score float64) *Result {
	if label != nil && *label == "" {
		label = nil
	}
	return &Result{
		PlateNumber: label,
		Confidence:  NewConfidence(score),
	}
}

// Detected сообщает, найден ли хоть один кандидат.
func (r *Result) Detected() bool {
	return r.PlateNumber != nil
}
