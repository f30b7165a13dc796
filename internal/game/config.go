package game

import (
	"errors"
	"fmt"
	"runtime"
)

// MaxHealth is both the spawn health and the heal cap.
const MaxHealth = 100

// maxWorldSide keeps coordinates inside the 16 bits an entity pose packs them in.
const maxWorldSide = 1<<16 - 1

// Config is read once by New. The simulation never mutates it.
type Config struct {
	Width      int
	Height     int
	ViewRadius int
	MoveTicks  int
	CastTicks  int
	Workers    int

	// SpellHPDelta is the health change each spell applies, indexed by Spell.
	SpellHPDelta [SpellCount]int
}

func DefaultConfig() Config {
	return Config{
		Width:        8,
		Height:       8,
		ViewRadius:   2,
		MoveTicks:    1,
		CastTicks:    1,
		Workers:      runtime.NumCPU(),
		SpellHPDelta: [SpellCount]int{Lightning: -51, SelfHeal: 40},
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 || c.Width > maxWorldSide || c.Height > maxWorldSide {
		errs = append(errs, fmt.Errorf("world size %dx%d out of range 1..%d", c.Width, c.Height, maxWorldSide))
	}
	if c.ViewRadius < 1 {
		errs = append(errs, fmt.Errorf("view radius %d must be positive", c.ViewRadius))
	}
	if c.MoveTicks < 1 {
		errs = append(errs, fmt.Errorf("move ticks %d must be positive", c.MoveTicks))
	}
	if c.CastTicks < 1 {
		errs = append(errs, fmt.Errorf("cast ticks %d must be positive", c.CastTicks))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers %d must be positive", c.Workers))
	}
	if c.SpellHPDelta[SelfHeal] < 0 {
		errs = append(errs, fmt.Errorf("self heal delta %d must not be negative", c.SpellHPDelta[SelfHeal]))
	}
	return errors.Join(errs...)
}
