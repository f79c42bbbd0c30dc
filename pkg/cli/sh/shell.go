// Package sh is the interactive bench shell of the link.
package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/omnilink/pkg/air"
	"github.com/robotalks/omnilink/pkg/wire"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *air.Config
	Conn   *AirConn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&StatusCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *air.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// PrintFrame prints a frame decoded, or as JSON of the packet.
func PrintFrame(c *ishell.Context, f *wire.Frame) {
	if !ShellFrom(c).OutputJSON {
		c.Println(wire.Describe(f))
		return
	}
	var v interface{} = map[string]string{"raw": f.Hex()}
	switch wire.PeekTag(f) {
	case wire.CommandTag:
		if p, ok := wire.DecodeCommand(f); ok {
			v = p
		}
	case wire.TelemetryTag:
		if p, ok := wire.DecodeTelemetry(f); ok {
			v = p
		}
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect joins the air link described by conf.
func (s *Shell) Connect(conf air.Config) error {
	conn, err := Dial(conf)
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Conn = conn
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", conn.Name()))
	return nil
}

// Disconnect leaves the current air link.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Peer != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Peer)
		}
		if err := s.Connect(*s.Config); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Peer, err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd joins an air link.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[PEER [URL]]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			conf := *s.Config
			if len(c.Args) > 0 {
				conf.Peer = c.Args[0]
			}
			if len(c.Args) > 1 {
				conf.URL = c.Args[1]
			}
			if conf.Peer == "" {
				c.Err(fmt.Errorf("PEER required"))
				return
			}
			if err := s.Connect(conf); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd leaves the current air link.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// StatusCmd shows the connection and the last received frame.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context) {
			conn := ShellFrom(c).Conn
			received, rejected := conn.Counts()
			c.Printf("%s ch%d %s -> %s: received %d, rejected %d\n",
				conn.Config.URL, conn.Config.Channel, conn.Config.Self, conn.Config.Peer,
				received, rejected)
			last := conn.Last()
			PrintFrame(c, &last)
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main(args ...string) {
	New(air.Default()).WithAutoConnect(true).Run(args...)
}
