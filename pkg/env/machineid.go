package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves the unique ID identifying the machine.
// The host name is used when the machine has no ID.
func MachineID() string {
	id, err := machineid.ID()
	if err == nil && id != "" {
		return id
	}
	host, herr := os.Hostname()
	if herr != nil || host == "" {
		host = "relayrx"
	}
	glog.V(1).Infof("machine id unavailable (%v), using %q", err, host)
	return host
}
