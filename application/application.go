package application

import (
	"fmt"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/gridworks/scripting/application/disk"
	"gopkg.in/yaml.v3"
)

// App the application instance
var App Application = nil

// Load set the application instance
func Load(app Application) {
	App = app
}

// OpenFromDisk open an application rooted at a directory
func OpenFromDisk(root string) (Application, error) {
	return disk.Open(root)
}

// Parse unmarshal a json/yaml configuration payload by file extension
func Parse(name string, data []byte, vPtr interface{}) error {
	ext := filepath.Ext(name)
	switch ext {
	case ".json":
		err := jsoniter.Unmarshal(data, vPtr)
		if err != nil {
			return fmt.Errorf("[Parse] %s Error %s", name, err.Error())
		}
		return nil

	case ".yml", ".yaml":
		err := yaml.Unmarshal(data, vPtr)
		if err != nil {
			return fmt.Errorf("[Parse] %s Error %s", name, err.Error())
		}
		return nil
	}

	return fmt.Errorf("[Parse] %s Error %s does not support", name, ext)
}
