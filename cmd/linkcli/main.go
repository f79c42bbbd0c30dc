package main

import (
	"flag"
	"log"

	"github.com/robotalks/omnilink/pkg/air"
	_ "github.com/robotalks/omnilink/pkg/air/all"
	"github.com/robotalks/omnilink/pkg/cli/sh"
	"github.com/robotalks/omnilink/pkg/env"

	_ "github.com/robotalks/omnilink/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
	air.SetupFlags()
}

func main() {
	if err := env.ParseFlags(); err != nil {
		log.Fatalln(err)
	}
	sh.Main(flag.Args()...)
}
