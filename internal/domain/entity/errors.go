package entity

import (
	"errors"
	"fmt"
)

// Stage стадия обработки, на которой произошла ошибка.
type Stage string

const (
	StageLoad      Stage = "load"      // загрузка модели
	StageDecode    Stage = "decode"    // декодирование изображения
	StageInference Stage = "inference" // прямой проход и разбор выхода
)

// ErrEmptyImage: байты изображения пусты или не дали пикселей.
var ErrEmptyImage = errors.New("empty image")

// StageError ошибка с указанием стадии.
type StageError struct {
	Stage Stage
	Cause error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
	}
	return string(e.Stage) + " failed"
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// NewStageError оборачивает err, если он ещё не несёт стадию.
func NewStageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Cause: err}
}

// StageOf возвращает стадию ошибки, если она известна.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
