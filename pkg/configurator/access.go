package configurator

import (
	"errors"

	"github.com/golang/glog"
)

// MinPasswordLen is the shortest password accepted for protected access.
const MinPasswordLen = 8

// ErrWeakPassword is returned when protected access can't be set up and
// open access isn't allowed.
var ErrWeakPassword = errors.New("configurator password shorter than 8 characters")

// AccessPassword decides how the configurator is exposed. A usable
// password is returned as is. Otherwise open access ("") is granted only
// if allowOpen is set, and it's always logged.
func AccessPassword(password string, allowOpen bool) (string, error) {
	if len(password) >= MinPasswordLen {
		return password, nil
	}
	if !allowOpen {
		return "", ErrWeakPassword
	}
	if password == "" {
		glog.Warning("configurator: no password, access is OPEN")
	} else {
		glog.Warning("configurator: password too short, falling back to OPEN access")
	}
	return "", nil
}
