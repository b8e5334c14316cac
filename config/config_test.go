package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PLATE_BACKEND", "PLATE_DEVICE", "PLATE_CONF", "PLATE_IOU", "PLATE_IMGSZ",
		"PLATE_MAX_DET", "PLATE_THREADS", "ORT_LIBRARY_PATH", "LOG_LEVEL", "DEBUG"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendONNX, cfg.Backend)
	require.Equal(t, "cpu", cfg.Device)
	require.Equal(t, 0.25, cfg.ConfThreshold)
	require.Equal(t, 0.7, cfg.IoUThreshold)
	require.Equal(t, 640, cfg.ImageSize)
	require.Equal(t, 300, cfg.MaxDetections)
	require.Zero(t, cfg.Threads)
	require.Empty(t, cfg.OrtLibrary)
	require.Equal(t, logrus.WarnLevel, cfg.LogLevel)
	require.False(t, cfg.Debug)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PLATE_BACKEND", BackendOpenCV)
	t.Setenv("PLATE_CONF", "0.4")
	t.Setenv("PLATE_IMGSZ", "320")
	t.Setenv("ORT_LIBRARY_PATH", "/opt/ort/libonnxruntime.so")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("DEBUG", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendOpenCV, cfg.Backend)
	require.Equal(t, 0.4, cfg.ConfThreshold)
	require.Equal(t, 320, cfg.ImageSize)
	require.Equal(t, "/opt/ort/libonnxruntime.so", cfg.OrtLibrary)
	require.Equal(t, logrus.InfoLevel, cfg.LogLevel)
}

func TestLoad_DebugForcesDebugLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.Debug)
	require.Equal(t, logrus.DebugLevel, cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"PLATE_CONF":  "high",
		"PLATE_IMGSZ": "big",
		"DEBUG":       "maybe",
		"LOG_LEVEL":   "loud",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.ErrorContains(t, err, key)
		})
	}
}
