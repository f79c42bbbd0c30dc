package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/omnilink/pkg/air"
	_ "github.com/robotalks/omnilink/pkg/air/all"
	"github.com/robotalks/omnilink/pkg/env"
	fx "github.com/robotalks/omnilink/pkg/framework"
	"github.com/robotalks/omnilink/pkg/node"
	"github.com/robotalks/omnilink/pkg/spi/uart"
)

var (
	serialPort = "/dev/ttyUSB0"
	baudRate   = 115200
	name       = "bridge"
)

func init() {
	if val := os.Getenv("OMNI_SERIAL"); val != "" {
		serialPort = val
	}
	flag.StringVar(&serialPort, "serial", serialPort, "Serial port to the control node.")
	flag.IntVar(&baudRate, "baud", baudRate, "Serial baud rate.")
	flag.StringVar(&name, "name", name, "Bridge name in logs and reports.")
	env.SetupFlags()
	air.SetupFlags()
	node.SetupFlags()
}

func main() {
	if err := env.ParseFlags(); err != nil {
		log.Fatalln(err)
	}
	defer glog.Flush()

	conf := node.NewConfig()
	wire, err := uart.Open(serialPort, baudRate)
	if err != nil {
		log.Fatalln(err)
	}
	defer wire.Close()

	link := air.Default().MustNewLink()
	defer link.Close()

	svc, err := conf.NewRelay(name, wire, link)
	if err != nil {
		log.Fatalln(err)
	}
	x, err := conf.NewExtras(name)
	if err != nil {
		log.Fatalln(err)
	}
	defer x.Close()
	x.AttachRelay(svc)

	runner := fx.NewRunner().HandleSignals()
	runner.FailFast = true
	runner.Go(fx.NamedRun(name, svc))
	runner.Go(x.Runnables()...)
	glog.Infof("%s: %s <-> %s ch%d", name, serialPort, air.Default().Peer, air.Default().Channel)
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
