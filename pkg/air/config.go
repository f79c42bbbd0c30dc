package air

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/robotalks/omnilink/pkg/env"
)

// Driver creates a Link from a parsed URL.
type Driver func(u *url.URL, conf *Config) (Link, error)

var (
	driversLock sync.RWMutex
	drivers     = make(map[string]Driver)
)

// Register registers a Driver for a URL scheme.
func Register(scheme string, d Driver) {
	driversLock.Lock()
	drivers[scheme] = d
	driversLock.Unlock()
}

// Config provides common options to setup air links.
type Config struct {
	// URL selects the driver, e.g.
	//   mem://lab?loss=0.05&latency=2ms
	//   mqtt://localhost:1883/omni/
	//   ws://peer-host:8080/air or ws://:8080/air?listen=true
	URL     string
	Channel Channel
	Self    string
	Peer    string
}

var defaultConfig = Config{
	URL:     "mem://default",
	Channel: 1,
}

func init() {
	if val := os.Getenv("OMNI_AIR_URL"); val != "" {
		defaultConfig.URL = val
	}
	if val := os.Getenv("OMNI_AIR_CHANNEL"); val != "" {
		if ch, err := strconv.ParseUint(val, 10, 8); err == nil {
			defaultConfig.Channel = Channel(ch)
		}
	}
	if val := os.Getenv("OMNI_AIR_SELF"); val != "" {
		defaultConfig.Self = val
	}
	if val := os.Getenv("OMNI_AIR_PEER"); val != "" {
		defaultConfig.Peer = val
	}
	if defaultConfig.Self == "" {
		defaultConfig.Self = env.StationAddr()
	}
}

type channelValue struct{ ch *Channel }

func (v channelValue) String() string {
	if v.ch == nil {
		return "0"
	}
	return strconv.Itoa(int(*v.ch))
}

func (v channelValue) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return err
	}
	*v.ch = Channel(n)
	return nil
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.URL, "air-url", defaultConfig.URL, "Air link URL.")
	flag.Var(channelValue{&defaultConfig.Channel}, "air-channel", "Air channel shared with the peer.")
	flag.StringVar(&defaultConfig.Self, "air-self", defaultConfig.Self, "Station address of this bridge.")
	flag.StringVar(&defaultConfig.Peer, "air-peer", defaultConfig.Peer, "Station address of the peer bridge.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Addrs parses the station addresses.
func (c *Config) Addrs() (self, peer Addr, err error) {
	if self, err = ParseAddr(c.Self); err != nil {
		return self, peer, fmt.Errorf("air-self: %v", err)
	}
	if peer, err = ParseAddr(c.Peer); err != nil {
		return self, peer, fmt.Errorf("air-peer: %v", err)
	}
	return
}

// NewLink creates a Link using the driver selected by URL scheme.
func (c *Config) NewLink() (Link, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid air URL: %v", err)
	}
	driversLock.RLock()
	d := drivers[u.Scheme]
	driversLock.RUnlock()
	if d == nil {
		return nil, &UnknownSchemeError{Scheme: u.Scheme}
	}
	return d(u, c)
}

// MustNewLink creates a Link and fails on error.
func (c *Config) MustNewLink() Link {
	l, err := c.NewLink()
	if err != nil {
		log.Fatalln(err)
	}
	return l
}
