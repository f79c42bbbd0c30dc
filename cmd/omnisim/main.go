package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/omnilink/pkg/air"
	_ "github.com/robotalks/omnilink/pkg/air/all"
	"github.com/robotalks/omnilink/pkg/env"
	fx "github.com/robotalks/omnilink/pkg/framework"
	"github.com/robotalks/omnilink/pkg/joystick"
	"github.com/robotalks/omnilink/pkg/node"
)

// Roles.
const (
	roleRemote = "remote"
	roleDrive  = "drive"
	roleAll    = "all"
)

// Station addresses of the sides when running both.
const (
	defaultRemoteAddr = "02:00:00:00:00:01"
	defaultDriveAddr  = "02:00:00:00:00:02"
)

var role = roleAll

func init() {
	flag.StringVar(&role, "role", role, "Which side to run: remote, drive or all.")
	env.SetupFlags()
	air.SetupFlags()
	joystick.SetupFlags()
	node.SetupFlags()
}

func main() {
	if err := env.ParseFlags(); err != nil {
		log.Fatalln(err)
	}
	defer glog.Flush()

	conf := node.NewConfig()
	x, err := conf.NewExtras("omnisim")
	if err != nil {
		log.Fatalln(err)
	}
	defer x.Close()

	runner := fx.NewRunner().HandleSignals()
	runner.FailFast = true
	switch role {
	case roleRemote:
		runner.Go(newRemote(conf, x, air.NewConfig())...)
	case roleDrive:
		runner.Go(newDrive(conf, x, air.NewConfig())...)
	case roleAll:
		remoteAir, driveAir := air.NewConfig(), air.NewConfig()
		if remoteAir.Self == "" {
			remoteAir.Self = defaultRemoteAddr
		}
		if remoteAir.Peer == "" {
			remoteAir.Peer = defaultDriveAddr
		}
		driveAir.Self, driveAir.Peer = remoteAir.Peer, remoteAir.Self
		runner.Go(newRemote(conf, x, remoteAir)...)
		runner.Go(newDrive(conf, x, driveAir)...)
	default:
		log.Fatalf("unknown role: %q", role)
	}
	runner.Go(x.Runnables()...)
	glog.Infof("omnisim: running %s", role)
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}

func newRemote(conf *node.Config, x *node.Extras, airConf *air.Config) []fx.Runnable {
	sampler, err := joystick.NewConfig().NewSampler()
	if err != nil {
		log.Fatalln(err)
	}
	r, err := conf.NewRemote(sampler, airConf.MustNewLink())
	if err != nil {
		log.Fatalln(err)
	}
	r.Attach(x)
	return r.Runnables()
}

func newDrive(conf *node.Config, x *node.Extras, airConf *air.Config) []fx.Runnable {
	d, err := conf.NewDrive(airConf.MustNewLink())
	if err != nil {
		log.Fatalln(err)
	}
	d.Attach(x)
	return d.Runnables()
}
