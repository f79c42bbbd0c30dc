package link

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/omnilink/pkg/cli/cmds/frame"
	"github.com/robotalks/omnilink/pkg/cli/sh"
	"github.com/robotalks/omnilink/pkg/record"
	"github.com/robotalks/omnilink/pkg/wire"
)

const (
	defaultSendInterval = 5 * time.Millisecond
	defaultWatchTime    = 5 * time.Second
	defaultTail         = 20
)

var (
	// SendCommandCmd sends command packets to the peer.
	SendCommandCmd = ishell.Cmd{
		Name:    "send.cmd",
		Aliases: []string{"sc"},
		Help:    "VX VY PHI [COUNT [INTERVAL]]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			vals, err := frame.ParseFloats(c.Args, "VX", "VY", "PHI")
			if err != nil {
				c.Err(err)
				return
			}
			count, interval := 1, defaultSendInterval
			if len(c.Args) > 3 {
				if count, err = strconv.Atoi(c.Args[3]); err != nil || count < 1 {
					c.Err(fmt.Errorf("Invalid COUNT: %s", c.Args[3]))
					return
				}
			}
			if len(c.Args) > 4 {
				if interval, err = time.ParseDuration(c.Args[4]); err != nil {
					c.Err(fmt.Errorf("Invalid INTERVAL: %v", err))
					return
				}
			}
			conn := sh.ShellFrom(c).Conn
			failures := 0
			for i := 0; i < count; i++ {
				if i > 0 {
					time.Sleep(interval)
				}
				p := wire.CommandPacket{VX: vals[0], VY: vals[1], Phi: vals[2]}
				if err := conn.SendCommand(&p); err != nil {
					failures++
				}
			}
			c.Printf("sent %d, failed %d\n", count-failures, failures)
		}),
	}

	// WatchCmd prints received frames for a while.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[DURATION]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			d := defaultWatchTime
			if len(c.Args) > 0 {
				var err error
				if d, err = time.ParseDuration(c.Args[0]); err != nil {
					c.Err(fmt.Errorf("Invalid DURATION: %v", err))
					return
				}
			}
			ctx, cancel := context.WithTimeout(context.Background(), d)
			defer cancel()
			sh.ShellFrom(c).Conn.Watch(ctx, func(f wire.Frame) {
				sh.PrintFrame(c, &f)
			})
		}),
	}

	// RecordTailCmd prints the latest frames of a record store.
	RecordTailCmd = ishell.Cmd{
		Name:    "record.tail",
		Aliases: []string{"rt"},
		Help:    "PATH [N]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("PATH required"))
				return
			}
			n := defaultTail
			if len(c.Args) > 1 {
				var err error
				if n, err = strconv.Atoi(c.Args[1]); err != nil || n < 1 {
					c.Err(fmt.Errorf("Invalid N: %s", c.Args[1]))
					return
				}
			}
			store, err := record.Open(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			defer store.Close()
			entries, err := store.Recent(n)
			if err != nil {
				c.Err(err)
				return
			}
			for i := len(entries) - 1; i >= 0; i-- {
				c.Println(entries[i].String())
			}
		},
	}
)

func init() {
	sh.AddCmds(
		&SendCommandCmd,
		&WatchCmd,
		&RecordTailCmd,
	)
}
