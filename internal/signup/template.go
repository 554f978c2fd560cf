// Package signup implements the slot registration engine: template
// generation, holdout policies, instance provisioning, event
// reconciliation, status resolution and slot resizing. The planning
// functions in this package are pure; the services that apply plans run
// inside database transactions.
package signup

import (
	"errors"
	"fmt"
	"time"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

// ErrBadConfig wraps all configuration errors raised by the engine.
// Handlers translate it into a 400 response; nothing partial has
// happened when it is returned.
var ErrBadConfig = errors.New("invalid form configuration")

const (
	// openListUnlimitedCeiling is the count above which an open_list
	// template collapses into a single slot carrying the whole capacity.
	// There is no true unbounded-capacity concept; this ceiling is the
	// documented stand-in for "effectively unlimited".
	openListUnlimitedCeiling = 100

	// defaultSimpleCapacity is used by simple_capacity when no count is
	// configured.
	defaultSimpleCapacity = 10

	// defaultSlotStartTime is the fallback when a time_based start time
	// string does not parse as HH:MM.
	defaultSlotStartTime = "19:00"

	// defaultSlotIntervalMin spaces time_based slots when no interval is
	// configured.
	defaultSlotIntervalMin = 15
)

// SlotDescriptor is one planned slot: the output unit of BuildTemplate
// and the input unit of the resize planner. Position is 1-based.
type SlotDescriptor struct {
	Position   uint32
	Name       *string
	Capacity   uint32
	Held       bool
	HeldReason *string
}

// GenerationConfig carries the slot-generation parameters of a form in
// validated form. Build it with GenerationConfigFromForm.
type GenerationConfig struct {
	Mode        model.GenerationMode
	Count       uint32
	Capacity    uint32
	Names       []string
	StartTime   string // "HH:MM", 24-hour
	IntervalMin uint32
}

// GenerationConfigFromForm extracts the generation parameters from a
// form row.
func GenerationConfigFromForm(f model.Form) GenerationConfig {
	return GenerationConfig{
		Mode:        f.GenerationMode,
		Count:       f.SlotCount,
		Capacity:    f.SlotCapacity,
		Names:       f.SlotNameList(),
		StartTime:   f.SlotStartTime,
		IntervalMin: f.SlotIntervalMin,
	}
}

// BuildTemplate turns a generation configuration into an ordered list
// of slot descriptors. The function is pure and deterministic:
// identical configuration yields an identical list, which is what makes
// it usable as the diff basis during a resize. A named mode with an
// empty name list returns an empty template and no error; the caller
// must treat that as "not yet configured".
func BuildTemplate(cfg GenerationConfig) ([]SlotDescriptor, error) {
	switch cfg.Mode {
	case model.GenNumbered:
		return buildNumbered(cfg)
	case model.GenTimeBased:
		return buildTimeBased(cfg)
	case model.GenNamed:
		return buildNamed(cfg)
	case model.GenSimpleCapacity:
		return buildSimpleCapacity(cfg)
	case model.GenOpenList:
		return buildOpenList(cfg)
	}
	return nil, fmt.Errorf("%w: unknown generation mode %q", ErrBadConfig, cfg.Mode)
}

func buildNumbered(cfg GenerationConfig) ([]SlotDescriptor, error) {
	if cfg.Count == 0 {
		return nil, fmt.Errorf("%w: numbered mode requires a positive slot count", ErrBadConfig)
	}
	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = 1
	}
	out := make([]SlotDescriptor, 0, cfg.Count)
	for i := uint32(1); i <= cfg.Count; i++ {
		name := fmt.Sprintf("Slot %d", i)
		out = append(out, SlotDescriptor{Position: i, Name: &name, Capacity: capacity})
	}
	return out, nil
}

func buildTimeBased(cfg GenerationConfig) ([]SlotDescriptor, error) {
	if cfg.Count == 0 {
		return nil, fmt.Errorf("%w: time_based mode requires a positive slot count", ErrBadConfig)
	}
	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = 1
	}
	start, err := time.Parse("15:04", cfg.StartTime)
	if err != nil {
		// Invalid start strings fall back to the default rather than
		// failing the whole template.
		start, _ = time.Parse("15:04", defaultSlotStartTime)
	}
	interval := cfg.IntervalMin
	if interval == 0 {
		interval = defaultSlotIntervalMin
	}
	out := make([]SlotDescriptor, 0, cfg.Count)
	for i := uint32(0); i < cfg.Count; i++ {
		at := start.Add(time.Duration(i) * time.Duration(interval) * time.Minute)
		name := at.Format("3:04 PM")
		out = append(out, SlotDescriptor{Position: i + 1, Name: &name, Capacity: capacity})
	}
	return out, nil
}

func buildNamed(cfg GenerationConfig) ([]SlotDescriptor, error) {
	out := make([]SlotDescriptor, 0, len(cfg.Names))
	for i, n := range cfg.Names {
		name := n
		out = append(out, SlotDescriptor{Position: uint32(i + 1), Name: &name, Capacity: 1})
	}
	return out, nil
}

func buildSimpleCapacity(cfg GenerationConfig) ([]SlotDescriptor, error) {
	capacity := cfg.Count
	if capacity == 0 {
		capacity = defaultSimpleCapacity
	}
	return []SlotDescriptor{{Position: 1, Capacity: capacity}}, nil
}

func buildOpenList(cfg GenerationConfig) ([]SlotDescriptor, error) {
	if cfg.Count == 0 {
		return nil, fmt.Errorf("%w: open_list mode requires a positive slot count", ErrBadConfig)
	}
	if cfg.Count > openListUnlimitedCeiling {
		return []SlotDescriptor{{Position: 1, Capacity: cfg.Count}}, nil
	}
	out := make([]SlotDescriptor, 0, cfg.Count)
	for i := uint32(1); i <= cfg.Count; i++ {
		out = append(out, SlotDescriptor{Position: i, Capacity: 1})
	}
	return out, nil
}
