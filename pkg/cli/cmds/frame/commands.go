package frame

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/omnilink/pkg/assembler"
	"github.com/robotalks/omnilink/pkg/cli/sh"
	"github.com/robotalks/omnilink/pkg/wire"
)

// ParseFloats parses float32 arguments by name.
func ParseFloats(args []string, names ...string) ([]float32, error) {
	vals := make([]float32, len(names))
	for i, name := range names {
		if i >= len(args) {
			return nil, fmt.Errorf("%s required", name)
		}
		val, err := strconv.ParseFloat(args[i], 32)
		if err != nil {
			return nil, fmt.Errorf("Invalid %s: %v", name, err)
		}
		vals[i] = float32(val)
	}
	return vals, nil
}

var (
	// DecodeCmd decodes a hex frame.
	DecodeCmd = ishell.Cmd{
		Name:    "decode",
		Aliases: []string{"dec"},
		Help:    "HEX",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("HEX required"))
				return
			}
			f, err := wire.FrameFromHex(strings.Join(c.Args, ""))
			if err != nil {
				c.Err(err)
				return
			}
			sh.PrintFrame(c, &f)
		},
	}

	// EncodeCommandCmd encodes a command packet to hex.
	EncodeCommandCmd = ishell.Cmd{
		Name:    "encode.cmd",
		Aliases: []string{"enc"},
		Help:    "VX VY PHI [COUNTER]",
		Func: func(c *ishell.Context) {
			vals, err := ParseFloats(c.Args, "VX", "VY", "PHI")
			if err != nil {
				c.Err(err)
				return
			}
			var counter uint64
			if len(c.Args) > 3 {
				if counter, err = strconv.ParseUint(c.Args[3], 0, 32); err != nil {
					c.Err(fmt.Errorf("Invalid COUNTER: %v", err))
					return
				}
			}
			p := wire.CommandPacket{VX: vals[0], VY: vals[1], Phi: vals[2]}
			p.Stamp(uint32(counter), uint32(counter))
			f := p.Frame()
			c.Println(f.Hex())
		},
	}

	// MapCmd maps a converter code with the default mapper.
	MapCmd = ishell.Cmd{
		Name:    "map",
		Aliases: []string{"m"},
		Help:    "RAW [MAX] [invert]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("RAW required"))
				return
			}
			raw, err := strconv.ParseUint(c.Args[0], 0, 32)
			if err != nil {
				c.Err(fmt.Errorf("Invalid RAW: %v", err))
				return
			}
			maxVal := assembler.DefaultMaxLinear
			if len(c.Args) > 1 {
				vals, err := ParseFloats(c.Args[1:], "MAX")
				if err != nil {
					c.Err(err)
					return
				}
				maxVal = vals[0]
			}
			invert := len(c.Args) > 2 && c.Args[2] == "invert"
			c.Println(assembler.DefaultMapper.Map(uint32(raw), maxVal, invert))
		},
	}
)

func init() {
	sh.AddCmds(
		&DecodeCmd,
		&EncodeCommandCmd,
		&MapCmd,
	)
}
