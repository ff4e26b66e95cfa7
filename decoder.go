package mx5

import (
	"encoding/binary"

	log "github.com/sirupsen/logrus"
)

const (
	// framePowertrain is the manufacturer frame broadcast by the PCM on
	// MX-5 NB vehicles. RPM is big-endian in bytes 0-1 scaled by 4, vehicle
	// speed big-endian in bytes 4-5 in hundredths of a km/h.
	framePowertrain uint32 = 0x201

	// frameOBDResponse is the mode-01 diagnostic response ID from the
	// primary ECU. The decoder only listens; it never originates requests,
	// so the diagnostic bus is not perturbed.
	frameOBDResponse uint32 = 0x7e8
)

const (
	obdModeCurrentResponse = 0x41

	pidCoolantTemp = 0x05
	pidRPM         = 0x0c
	pidSpeed       = 0x0d
	pidThrottle    = 0x11
)

const (
	rpmDivisor = 4
	maxRPM     = 9000
)

// DecodeResult classifies the outcome of decoding one frame.
type DecodeResult uint8

const (
	// DecodeIgnored: the ID is not tracked, the sample was not touched.
	DecodeIgnored DecodeResult = iota
	// DecodeUpdated: at least one field of the sample was refreshed.
	DecodeUpdated
	// DecodeMalformed: a tracked ID arrived with an unexpected length;
	// the sample was not touched. Counts against health.
	DecodeMalformed
)

// DecodeFrame folds a single bus frame into the engine sample. Frames with
// untracked IDs have no observable effect. Malformed frames never panic and
// never mutate the sample.
func DecodeFrame(f Frame, nowMS uint64, s *EngineSample) DecodeResult {
	switch f.ID {
	case framePowertrain:
		return decodePowertrain(f, nowMS, s)
	case frameOBDResponse:
		return decodeOBDResponse(f, nowMS, s)
	}
	return DecodeIgnored
}

func decodePowertrain(f Frame, nowMS uint64, s *EngineSample) DecodeResult {
	if f.Length < 6 {
		log.WithField("canID", f.ID).
			WithField("length", f.Length).
			Debug("short powertrain frame")
		return DecodeMalformed
	}
	rpm := binary.BigEndian.Uint16(f.Data[0:2]) / rpmDivisor
	if rpm > maxRPM {
		rpm = maxRPM
	}
	s.RPM = rpm
	s.Speed = clampSpeed(uint32(binary.BigEndian.Uint16(f.Data[4:6])) / 100)
	s.LastUpdateMS = nowMS
	return DecodeUpdated
}

func decodeOBDResponse(f Frame, nowMS uint64, s *EngineSample) DecodeResult {
	// ISO-TP single frame: [additional-length, mode, pid, A, B, ...]
	if f.Length < 3 || f.Data[1] != obdModeCurrentResponse {
		return DecodeMalformed
	}
	switch f.Data[2] {
	case pidRPM:
		if f.Length < 5 {
			return DecodeMalformed
		}
		rpm := (uint16(f.Data[3])*256 + uint16(f.Data[4])) / rpmDivisor
		if rpm > maxRPM {
			rpm = maxRPM
		}
		s.RPM = rpm
	case pidSpeed:
		if f.Length < 4 {
			return DecodeMalformed
		}
		s.Speed = f.Data[3]
	case pidThrottle:
		if f.Length < 4 {
			return DecodeMalformed
		}
		s.Throttle = uint8(uint16(f.Data[3]) * 100 / 255)
		s.ThrottleValid = true
	case pidCoolantTemp:
		if f.Length < 4 {
			return DecodeMalformed
		}
		s.Coolant = int16(f.Data[3]) - 40
		s.CoolantValid = true
	default:
		// a response for a PID this display has no use for
		return DecodeIgnored
	}
	s.LastUpdateMS = nowMS
	return DecodeUpdated
}

func clampSpeed(v uint32) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}
