package vision

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"plate-detect/internal/domain/entity"
)

// ParseNames разбирает таблицу имён классов. Поддерживаются метаданные
// ultralytics ONNX ({0: 'plate'}), data.yaml с ключом names, а также
// голые список или словарь.
func ParseNames(text []byte) (entity.Names, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return nil, fmt.Errorf("parse class names: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("class names are empty")
	}

	node := doc.Content[0]
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "names" {
				node = node.Content[i+1]
				break
			}
		}
	}

	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode class names list: %w", err)
		}
		names := make(entity.Names, len(list))
		for i, name := range list {
			names[i] = name
		}
		return names, nil
	case yaml.MappingNode:
		var names map[int]string
		if err := node.Decode(&names); err != nil {
			return nil, fmt.Errorf("decode class names map: %w", err)
		}
		return entity.Names(names), nil
	default:
		return nil, fmt.Errorf("class names must be a list or a map, got %q", node.Value)
	}
}

// LoadNamesFile читает таблицу имён классов из файла.
func LoadNamesFile(path string) (entity.Names, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}
	return ParseNames(data)
}
