package main

import (
	"context"
	"flag"
	"fmt"

	log "github.com/sirupsen/logrus"

	mx5 "github.com/tnnrhpwd/MX5-Telemetry-sub002"
	"github.com/tnnrhpwd/MX5-Telemetry-sub002/forwarder"
	"github.com/tnnrhpwd/MX5-Telemetry-sub002/ledout"
)

var configPath = flag.String("config", "mx5.toml", "daemon configuration file")
var forwarderConfig = flag.String("forwarder", "", "udp forwarder configuration file")
var testMode = flag.Bool("testmode", false, "generate synthetic can frames")
var printTelemetry = flag.Bool("print-telemetry", false, "print snapshots to stdout")

type printForwarder struct{}

func (printForwarder) Forward(newSnapshot *mx5.Snapshot, prevSnapshot *mx5.Snapshot) error {
	fmt.Printf("%+v\n", *newSnapshot)
	return nil
}

func main() {
	log.SetLevel(log.InfoLevel)
	flag.Parse()

	ctx := context.Background()

	cfg, err := mx5.LoadConfig(*configPath)
	if err != nil {
		log.Warnf("using default configuration: %v", err)
		cfg = mx5.DefaultConfig()
	}

	p := mx5.NewPipeline(cfg)

	if cfg.Led.Server != "" {
		drv, err := ledout.NewUDPDriver(cfg.Led.Server, cfg.Led.Port)
		if err != nil {
			log.Fatal("unable to reach led bridge: ", err)
		}
		p.AddLedDriver(drv)
	} else {
		p.AddLedDriver(&ledout.Buffer{})
	}

	if *forwarderConfig != "" {
		fwder, err := forwarder.NewUDPForwarder(*forwarderConfig)
		if err != nil {
			log.Fatal("unable to load UDP forwarder: ", err)
		}
		go func() {
			_ = fwder.Start(ctx)
		}()
		p.AddForwarder(fwder)
	}
	if *printTelemetry {
		p.AddForwarder(printForwarder{})
	}
	if !*testMode {
		p.AddTokenForwarder()
	}

	p.SetTestMode(*testMode)
	p.Start(ctx)

	if err := p.Run(ctx); err != nil {
		log.Fatal("pipeline stopped: ", err)
	}
}
