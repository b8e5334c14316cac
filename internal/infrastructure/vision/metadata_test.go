package vision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"plate-detect/internal/domain/entity"
)

func TestClassNames_FileOverridesMetadata(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	path := filepath.Join(t.TempDir(), "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte("names:\n  - license_plate\n"), 0o644))

	opts := DefaultOptions()
	opts.NamesFile = path
	names, err := classNames("best.onnx", opts, logger)
	require.NoError(t, err)
	require.Equal(t, entity.Names{0: "license_plate"}, names)
}

func TestClassNames_MissingFile(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	opts := DefaultOptions()
	opts.NamesFile = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := classNames("best.onnx", opts, logger)
	require.Error(t, err)
}

func TestMetadataNames_NoRuntime(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")

	require.Nil(t, metadataNames("best.onnx", lib, logger))
	require.NotEmpty(t, hook.Entries)
}
