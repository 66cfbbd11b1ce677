package pin

import (
	_ "embed"

	"github.com/BurntSushi/toml"
)

// Profile describes a board layout: how many digital pins it has, which
// analog labels exist, and which digital pins carry a PWM timer.
type Profile struct {
	Name    string   `toml:"name"`
	Digital int      `toml:"digital_pins"`
	Analog  []string `toml:"analog_pins"`
	Pwm     []int    `toml:"pwm_pins"`
}

//go:embed uno.toml
var unoProfile []byte

// DefaultProfile returns the built-in Uno layout.
func DefaultProfile() (profile *Profile) {
	profile = &Profile{}
	if err := toml.Unmarshal(unoProfile, profile); err != nil {
		panic(err) // the embedded profile is covered by tests
	}
	return
}

// LoadProfile reads a board profile from a TOML file.
func LoadProfile(path string) (profile *Profile, err error) {
	profile = &Profile{}
	if _, err = toml.DecodeFile(path, profile); err != nil {
		return nil, err
	}
	if profile.Digital < 1 {
		return nil, ErrProfileEmpty
	}
	return
}
