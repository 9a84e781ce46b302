package epaper

import (
	"fmt"

	"github.com/juju/errors"
)

type Model uint8

const (
	Model154 Model = iota // 1.54" GDEH0154D67, SSD1681
	Model213              // 2.13" DEPG0213BN, SSD1680
	Model290              // 2.9" DEPG0290BS
	Model420              // 4.2" GDEY042T81
)

type modelSpec struct {
	width  uint16
	height uint16
	name   string
}

var modelSpecs = map[Model]modelSpec{
	Model154: {200, 200, `1.54" GDEH0154D67`},
	Model213: {122, 250, `2.13" DEPG0213BN`},
	Model290: {128, 296, `2.9" DEPG0290BS`},
	Model420: {400, 300, `4.2" GDEY042T81`},
}

// modelOps is the per-model controller dispatch. A model present in
// modelSpecs but not here has known dimensions without a working bring-up
// and is rejected at Init.
type modelOps struct {
	bringUp func(d *Driver) error
	update  func(d *Driver, full bool) error
}

var modelTable = map[Model]modelOps{
	Model154: {bringUp: (*Driver).bringUp154, update: (*Driver).update154},
	Model213: {bringUp: (*Driver).bringUp213, update: (*Driver).update213},
}

func (m Model) String() string {
	if spec, ok := modelSpecs[m]; ok {
		return spec.name
	}
	return fmt.Sprintf("Model(%d)", uint8(m))
}

// ParseModel accepts the short config spelling, e.g. "213".
func ParseModel(s string) (Model, error) {
	switch s {
	case "154":
		return Model154, nil
	case "213":
		return Model213, nil
	case "290":
		return Model290, nil
	case "420":
		return Model420, nil
	}
	return 0, errors.NotSupportedf("epaper model=%s", s)
}

// DefaultConfig returns panel dimensions and update policy defaults for a
// known model.
func DefaultConfig(model Model) (Config, error) {
	spec, ok := modelSpecs[model]
	if !ok {
		return Config{}, errors.NotSupportedf("epaper model=%d", uint8(model))
	}
	return Config{
		Model:        model,
		Width:        spec.width,
		Height:       spec.height,
		Rotation:     0,
		Partial:      true,
		FullInterval: 10,
	}, nil
}
