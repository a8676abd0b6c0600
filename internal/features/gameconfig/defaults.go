package gameconfig

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults: таблицы, которые действуют, пока админ не опубликовал свою версию.
type Defaults struct {
	Spin SpinConfig `yaml:"spin"`
	Box  BoxConfig  `yaml:"box"`
}

// BuiltinDefaults разбирает встроенный defaults.yaml.
// Встроенный файл проверен тестами, поэтому ошибка здесь означает поломку сборки.
func BuiltinDefaults() *Defaults {
	d, err := parseDefaults(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("встроенный defaults.yaml повреждён: %v", err))
	}
	return d
}

// LoadDefaults читает YAML с таблицами по умолчанию.
// Пустой path возвращает встроенные значения.
func LoadDefaults(path string) (*Defaults, error) {
	if path == "" {
		return BuiltinDefaults(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", path, err)
	}
	d, err := parseDefaults(raw)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора %s: %w", path, err)
	}
	return d, nil
}

func parseDefaults(raw []byte) (*Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	if err := ValidateSpin(&d.Spin); err != nil {
		return nil, fmt.Errorf("spin: %w", err)
	}
	if err := ValidateBox(&d.Box); err != nil {
		return nil, fmt.Errorf("box: %w", err)
	}
	return &d, nil
}
