package implementations

import (
	"github.com/annel0/sensor-playback/internal/extractor"
	"github.com/annel0/sensor-playback/internal/registry"
)

// Регистрируем все экстракторы при импорте пакета
func init() {
	RegisterDefaults(extractor.Default())
}

// RegisterDefaults добавляет экстракторы всех распознаваемых типов в реестр
func RegisterDefaults(reg *extractor.Registry) {
	reg.Register(registry.DataTypeDVS, NewDvsExtractor)
	reg.Register(registry.DataTypeFrame, NewFrameExtractor)
	reg.Register(registry.DataTypePose6q, NewPose6qExtractor)
	reg.Register(registry.DataTypePoint3, NewPoint3Extractor)
}
