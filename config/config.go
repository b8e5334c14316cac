package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	BackendONNX   = "onnx"
	BackendOpenCV = "opencv"
)

type Config struct {
	Backend       string
	Device        string
	ConfThreshold float64
	IoUThreshold  float64
	ImageSize     int
	MaxDetections int
	Threads       int
	OrtLibrary    string
	LogLevel      logrus.Level
	Debug         bool
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		Backend:    getEnv("PLATE_BACKEND", BackendONNX),
		Device:     getEnv("PLATE_DEVICE", "cpu"),
		OrtLibrary: os.Getenv("ORT_LIBRARY_PATH"),
	}

	var err error
	if cfg.ConfThreshold, err = getFloat("PLATE_CONF", 0.25); err != nil {
		return nil, err
	}
	if cfg.IoUThreshold, err = getFloat("PLATE_IOU", 0.7); err != nil {
		return nil, err
	}
	if cfg.ImageSize, err = getInt("PLATE_IMGSZ", 640); err != nil {
		return nil, err
	}
	if cfg.MaxDetections, err = getInt("PLATE_MAX_DET", 300); err != nil {
		return nil, err
	}
	if cfg.Threads, err = getInt("PLATE_THREADS", 0); err != nil {
		return nil, err
	}
	if cfg.Debug, err = getBool("DEBUG", false); err != nil {
		return nil, err
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "warn"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level
	if cfg.Debug {
		cfg.LogLevel = logrus.DebugLevel
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
