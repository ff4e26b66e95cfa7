package mx5

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// HealthConfig tunes the health monitor.
type HealthConfig struct {
	StaleTimeoutMS    uint64 `toml:"stale_timeout_ms"`
	BusErrorThreshold int    `toml:"bus_error_threshold"`
}

// LedConfig describes the strip and the animation tick.
type LedConfig struct {
	Count          int    `toml:"count"`
	TickIntervalMS int    `toml:"tick_interval_ms"`
	DisplayMode    string `toml:"display_mode"` // gear, clutch, slip, dash

	// Server/Port of the UDP strip bridge; empty server keeps output
	// in-process.
	Server string `toml:"server"`
	Port   int    `toml:"port"`
}

// Config is everything the daemon loads once at construction.
type Config struct {
	CANInterface string         `toml:"can_interface"`
	Profile      VehicleProfile `toml:"profile"`
	Bands        Bands          `toml:"bands"`
	Health       HealthConfig   `toml:"health"`
	Led          LedConfig      `toml:"led"`
}

// DefaultConfig carries the NB 6-speed drivetrain and band thresholds used
// when a field is absent from the TOML file.
func DefaultConfig() *Config {
	return &Config{
		CANInterface: "can0",
		Profile: VehicleProfile{
			GearRatios:          []float64{3.76, 2.269, 1.645, 1.257, 1.0, 0.843},
			FinalDrive:          3.909,
			WheelCircumferenceM: 1.915,
			MinMovementSpeed:    2,
			ClutchDeviation:     0.30,
		},
		Bands: Bands{
			PowerBandMin:  2000,
			ShiftBandMin:  5500,
			Redline:       7000,
			HysteresisRPM: 50,
		},
		Health: HealthConfig{
			StaleTimeoutMS: 500,
		},
		Led: LedConfig{
			Count:          DefaultLedCount,
			TickIntervalMS: 20,
			DisplayMode:    "gear",
		},
	}
}

func LoadConfig(fileName string) (*Config, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open config %s", fileName)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader decodes TOML over the defaults, so partial files are
// valid.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "unable to parse configuration")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Profile.GearRatios) == 0 {
		return errors.New("profile: no gear ratios")
	}
	if c.Profile.FinalDrive <= 0 {
		return errors.New("profile: final drive must be positive")
	}
	if c.Profile.WheelCircumferenceM <= 0 {
		return errors.New("profile: wheel circumference must be positive")
	}
	if c.Bands.PowerBandMin >= c.Bands.ShiftBandMin || c.Bands.ShiftBandMin >= c.Bands.Redline {
		return errors.Errorf("bands: need power < shift < redline, got %d/%d/%d",
			c.Bands.PowerBandMin, c.Bands.ShiftBandMin, c.Bands.Redline)
	}
	if c.Led.Count <= 0 {
		return errors.New("led: count must be positive")
	}
	if c.Led.TickIntervalMS <= 0 {
		return errors.New("led: tick interval must be positive")
	}
	if _, err := ParseDisplayMode(c.Led.DisplayMode); err != nil {
		return err
	}
	return nil
}

func ParseDisplayMode(s string) (DisplayMode, error) {
	switch s {
	case "", "gear":
		return DisplayGearNumber, nil
	case "clutch":
		return DisplayClutchGlyph, nil
	case "slip":
		return DisplaySlipGlyph, nil
	case "dash":
		return DisplayDash, nil
	}
	return DisplayGearNumber, errors.Errorf("unknown display mode %q", s)
}
