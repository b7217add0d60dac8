package reference

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"eapgraph/internal/model"
)

// LoadCatalog читает локальные codelist'ы из YAML-файлов папки (по одному
// codelist'у на файл). Код берётся из поля code или из имени файла.
func LoadCatalog(dir string) (map[string]*model.CodeList, error) {
	result := make(map[string]*model.CodeList)
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(file.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var cl model.CodeList
		if err := yaml.Unmarshal(data, &cl); err != nil {
			return nil, fmt.Errorf("%s: %w", file.Name(), err)
		}
		if cl.Code == "" {
			cl.Code = strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
		}
		if _, dup := result[cl.Code]; dup {
			return nil, fmt.Errorf("%s: codelist %s defined twice", file.Name(), cl.Code)
		}
		cl.Source = "catalog"
		result[cl.Code] = &cl
	}
	return result, nil
}
