package catalog

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/dto"
)

// LoadFile reads a YAML, JSON or TOML catalog document.
func LoadFile(path string) (dto.CatalogPayload, error) {
	var out dto.CatalogPayload
	if path == "" {
		return out, fmt.Errorf("catalog file path is empty")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "yml" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return out, fmt.Errorf("read catalog file %s: %w", path, err)
	}
	if err := v.Unmarshal(&out); err != nil {
		return out, fmt.Errorf("decode catalog file %s: %w", path, err)
	}
	if out.Name == "" {
		out.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return out, nil
}
