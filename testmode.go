package mx5

import (
	"context"
	"encoding/binary"
	"time"
)

// runTestMode sweeps rpm up and down through every band while driving a
// plausible third-gear speed, letting the whole pipeline run without a
// vehicle attached.
func (p *Pipeline) runTestMode(ctx context.Context) {
	profile := &p.cfg.Profile
	gearIdx := len(profile.GearRatios) / 2
	ratio := profile.GearRatios[gearIdx]
	// km/h per rpm in the chosen gear
	kmhPerRPM := profile.WheelCircumferenceM / (ratio * profile.FinalDrive * 60) * 3.6

	rpm := uint16(800)
	down := false
	iteration := 0

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		speed := uint16(kmhPerRPM * float64(rpm))
		p.OfferFrame(mkPowertrainFrame(rpm, speed))

		iteration++
		if iteration%25 == 0 {
			p.OfferFrame(mkOBDFrame(pidCoolantTemp, 90+40))
		}
		if iteration%10 == 0 {
			p.OfferFrame(mkOBDFrame(pidThrottle, uint8(uint32(rpm)*255/8000)))
		}

		if down {
			rpm -= 50
		} else {
			rpm += 50
		}
		if rpm >= 7200 {
			down = true
		} else if rpm <= 800 {
			down = false
		}
	}
}

func mkPowertrainFrame(rpm uint16, speedKMH uint16) Frame {
	f := Frame{
		ID:     framePowertrain,
		Length: 8,
	}
	binary.BigEndian.PutUint16(f.Data[0:2], rpm*rpmDivisor)
	binary.BigEndian.PutUint16(f.Data[4:6], speedKMH*100)
	return f
}

func mkOBDFrame(pid uint8, value uint8) Frame {
	return Frame{
		ID:     frameOBDResponse,
		Length: 4,
		Data:   [8]byte{3, obdModeCurrentResponse, pid, value},
	}
}
