// Package inhibit keeps the machine from sleeping or shutting down while a
// task runs, using systemd-logind's inhibitor locks over D-Bus.
package inhibit

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/godbus/dbus/v5"
)

const (
	logindDest    = "org.freedesktop.login1"
	logindPath    = dbus.ObjectPath("/org/freedesktop/login1")
	logindInhibit = "org.freedesktop.login1.Manager.Inhibit"
)

// Inhibitor takes a lock that lasts until release is called.
type Inhibitor interface {
	Acquire(why string) (release func(), err error)
}

// Logind blocks sleep and shutdown through org.freedesktop.login1.
type Logind struct {
	// Who is shown by systemd-inhibit --list.
	Who string
}

var _ Inhibitor = Logind{}

func (l Logind) Acquire(why string) (func(), error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to system bus: %w", err)
	}

	var fd dbus.UnixFD
	call := conn.Object(logindDest, logindPath).Call(logindInhibit, 0, "sleep:shutdown", l.Who, why, "block")
	if err := call.Store(&fd); err != nil {
		conn.Close()
		return nil, fmt.Errorf("taking inhibitor lock: %w", err)
	}

	// The lock is held for as long as the returned descriptor stays open.
	lock := os.NewFile(uintptr(fd), "inhibitor")
	slog.Debug("inhibitor lock acquired", "who", l.Who, "why", why)
	return func() {
		lock.Close()
		conn.Close()
		slog.Debug("inhibitor lock released", "who", l.Who)
	}, nil
}

// Noop never takes a lock.
type Noop struct{}

func (Noop) Acquire(string) (func(), error) {
	return func() {}, nil
}

// Hold acquires a lock from inh. Failure is reported through warn and yields
// a release function that does nothing.
func Hold(inh Inhibitor, why string, warn func(text string, extra ...any)) func() {
	release, err := inh.Acquire(why)
	if err != nil {
		if warn != nil {
			warn("Could not inhibit sleep:", err)
		}
		return func() {}
	}
	return release
}
