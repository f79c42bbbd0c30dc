package env

import (
	"encoding/hex"
	"net"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID salts the machine ID so it is never exposed verbatim.
const AppID = "omnilink"

// MachineID retrieves the unique ID identifying the machine.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		panic(err)
	}
	return id
}

// StationAddr derives a stable, locally administered station address
// from the machine ID. It returns "" if the machine ID is unavailable.
func StationAddr() string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		glog.V(1).Infof("env: machine id unavailable: %v", err)
		return ""
	}
	return StationAddrFrom(id)
}

// StationAddrFrom derives a station address from a hex ID.
func StationAddrFrom(hexID string) string {
	raw, err := hex.DecodeString(hexID)
	if err != nil || len(raw) < 6 {
		return ""
	}
	addr := net.HardwareAddr(raw[:6])
	addr[0] = addr[0]&^0x01 | 0x02
	return addr.String()
}
