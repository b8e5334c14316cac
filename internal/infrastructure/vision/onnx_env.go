package vision

import (
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// defaultLibraryPath имя библиотеки onnxruntime для ОС; ищется загрузчиком
// в стандартных путях.
func defaultLibraryPath(goos string) string {
	switch goos {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath == "" {
		libraryPath = defaultLibraryPath(runtime.GOOS)
	}
	ort.SetSharedLibraryPath(libraryPath)
	return ort.InitializeEnvironment()
}

func destroyEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
