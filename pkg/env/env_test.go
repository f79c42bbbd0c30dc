package env

import (
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStationAddrFrom(t *testing.T) {
	addr := StationAddrFrom("0123456789abcdef")
	require.Equal(t, "02:23:45:67:89:ab", addr)
	require.Equal(t, "", StationAddrFrom("0123"))
	require.Equal(t, "", StationAddrFrom("not-hex"))
	require.Equal(t, "fe:00:00:00:00:00", StationAddrFrom("ff0000000000"))
}

func TestApplyProfile(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	url := fs.String("air-url", "mem://default", "")
	ch := fs.Int("air-channel", 1, "")
	verbose := fs.Bool("verbose", false, "")
	require.NoError(t, fs.Parse([]string{"-air-channel=9"}))

	values, err := ParseProfile([]byte("air-url: mqtt://broker:1883/omni\nair-channel: 3\nverbose: true\n"))
	require.NoError(t, err)
	require.NoError(t, Apply(fs, values))
	require.Equal(t, "mqtt://broker:1883/omni", *url)
	require.Equal(t, 9, *ch)
	require.True(t, *verbose)

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Bool("verbose", false, "")
	require.Error(t, Apply(fs, map[string]string{"unknown": "1"}))
	require.Error(t, Apply(fs, map[string]string{"verbose": "maybe"}))
}

func TestApplyFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "omni-env")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte("period: 20ms\n"), 0644))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	period := fs.Duration("period", 0, "")
	require.NoError(t, ApplyFile(fs, path))
	require.Equal(t, "20ms", period.String())

	require.Error(t, ApplyFile(fs, filepath.Join(dir, "missing.yaml")))
}
