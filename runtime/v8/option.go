package v8

import (
	"github.com/yaoapp/kun/log"
	"github.com/gridworks/scripting/application"
)

var defaultHeapSizeLimit uint64 = 1518338048   // 1.5G
var defaultHeapSizeRelease uint64 = 52428800   // 50M
var defaultHeapAvailableSize uint64 = 524288000 // 500M

// Validate the option, clamping out-of-range values
func (option *Option) Validate() {

	if option.HeapSizeLimit == 0 {
		option.HeapSizeLimit = defaultHeapSizeLimit
	}

	if option.HeapSizeLimit > defaultHeapSizeLimit {
		log.Warn("[V8] the maximum value of HeapSizeLimit is 1518338048(1.5G)")
		option.HeapSizeLimit = defaultHeapSizeLimit
	}

	if option.HeapSizeRelease == 0 {
		option.HeapSizeRelease = defaultHeapSizeRelease
	}

	if option.HeapSizeRelease > defaultHeapAvailableSize {
		log.Warn("[V8] the maximum value of heapSizeRelease is 524288000(500M)")
		option.HeapSizeRelease = defaultHeapAvailableSize
	}

	if option.HeapAvailableSize == 0 {
		option.HeapAvailableSize = defaultHeapAvailableSize
	}

	if option.HeapAvailableSize > option.HeapSizeLimit {
		log.Warn("[V8] the heapAvailableSize value should be smaller than heapSizeLimit")
		option.HeapAvailableSize = defaultHeapAvailableSize
	}

	if option.SourceCacheSize <= 0 {
		option.SourceCacheSize = 64
	}
}

// OptionFromFile load an option from a json/yaml file via the application
func OptionFromFile(name string) (*Option, error) {

	data, err := application.App.Read(name)
	if err != nil {
		return nil, err
	}

	option := &Option{}
	if err := application.Parse(name, data, option); err != nil {
		return nil, err
	}

	option.Validate()
	return option, nil
}
