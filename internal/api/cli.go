package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"plate-detect/config"
	"plate-detect/internal/domain/entity"
)

// StdinPath значение --image для чтения байтов из stdin.
const StdinPath = "-"

// Detector ищет номерной знак на изображении.
type Detector interface {
	Detect(ctx context.Context, modelPath string, imageData []byte) (*entity.Result, error)
}

// Builder собирает детектор по итоговой конфигурации запуска.
type Builder func(cfg *config.Config, namesFile string) (Detector, io.Closer, error)

// Streams потоки ввода-вывода команды.
type Streams struct {
	In  io.Reader
	Out io.Writer // только строка с JSON-результатом
	Err io.Writer // справка, usage и диагностика
}

// NewCommand создаёт корневую команду CLI.
func NewCommand(cfg *config.Config, build Builder, streams Streams) *cobra.Command {
	var (
		modelPath string
		imagePath string
		namesFile string
	)
	settings := *cfg

	cmd := &cobra.Command{
		Use:           "plate-detect --model <path> --image <path|->",
		Short:         "Find the most confident license plate on an image",
		Long:          "Runs a YOLO detection model on one image and prints the best detection as a JSON line.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Дальше ошибки уже не про аргументы, usage не печатаем.
			cmd.SilenceUsage = true

			imageData, err := ReadImage(imagePath, streams.In)
			if err != nil {
				return err
			}

			detector, closer, err := build(&settings, namesFile)
			if err != nil {
				return err
			}
			defer func() {
				if err := closer.Close(); err != nil {
					cmd.PrintErrf("release resources: %v\n", err)
				}
			}()

			result, err := detector.Detect(cmd.Context(), modelPath, imageData)
			if err != nil {
				return err
			}

			return WriteResult(streams.Out, result)
		},
	}
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Err)
	cmd.SetErr(streams.Err)

	flags := cmd.Flags()
	flags.StringVar(&modelPath, "model", "", "path to the YOLO model artifact")
	flags.StringVar(&imagePath, "image", "", "path to the image, or - to read from stdin")
	flags.StringVar(&namesFile, "names", "", "YAML file with class names (overrides model metadata)")
	flags.StringVar(&settings.Backend, "backend", settings.Backend, "inference backend: onnx or opencv")
	flags.StringVar(&settings.Device, "device", settings.Device, "inference device: cpu or cuda")
	flags.Float64Var(&settings.ConfThreshold, "conf", settings.ConfThreshold, "confidence threshold")
	flags.Float64Var(&settings.IoUThreshold, "iou", settings.IoUThreshold, "NMS IoU threshold")
	flags.IntVar(&settings.ImageSize, "imgsz", settings.ImageSize, "network input size")
	flags.IntVar(&settings.MaxDetections, "max-det", settings.MaxDetections, "maximum detections per image")
	flags.StringVar(&settings.OrtLibrary, "ort-lib", settings.OrtLibrary, "path to the onnxruntime shared library")

	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

// ReadImage читает байты изображения из файла или из stdin при пути "-".
func ReadImage(path string, stdin io.Reader) ([]byte, error) {
	if path == StdinPath {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// WriteResult печатает результат одной строкой JSON в виде json.dumps:
// разделители ": " и ", ", не-ASCII символы экранируются как \uXXXX.
func WriteResult(w io.Writer, r *entity.Result) error {
	plate, err := encodeString(r.PlateNumber)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = fmt.Fprintf(w, "{\"plate_number\": %s, \"confidence\": %s}\n", plate, r.Confidence)
	return err
}

func encodeString(s *string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return escapeNonASCII(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// escapeNonASCII заменяет не-ASCII руны на \uXXXX, вне BMP суррогатной парой.
func escapeNonASCII(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, r := range string(data) {
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		for _, unit := range utf16.Encode([]rune{r}) {
			out = fmt.Appendf(out, "\\u%04x", unit)
		}
	}
	return out
}
