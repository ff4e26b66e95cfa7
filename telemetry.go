package mx5

// EngineSample is the running "last known good" view of engine state. Fields
// are mutated individually as matching frames arrive; a frame that carries no
// value for a field leaves it untouched, so the sample never resets to a
// zeroed placeholder after cold start.
type EngineSample struct {
	RPM   uint16 // 0..9000
	Speed uint8  // km/h

	Throttle      uint8 // percent
	ThrottleValid bool

	Coolant      int16 // degrees C
	CoolantValid bool

	LastUpdateMS uint64
}

// Snapshot is the outward projection of the interpreted state, forwarded to
// remote consumers. Fixed-size fields only so it can be written directly with
// encoding/binary.
type Snapshot struct {
	RPM           uint16
	Speed         uint8
	Gear          int8
	Confidence    float32
	ClutchEngaged bool
	State         uint8
	Stale         bool
}
