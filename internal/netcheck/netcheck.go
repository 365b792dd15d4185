// Package netcheck decides whether the node has a usable network link before
// a report is sent.
package netcheck

import (
	"context"
	"slices"

	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/tphakala/proxnode/internal/logger"
)

// Attachment reports whether the node is currently attached to a network.
type Attachment interface {
	Attached(ctx context.Context) bool
}

// Always is an Attachment that is always attached. Used when the check is
// disabled and in tests.
type Always struct{}

func (Always) Attached(context.Context) bool { return true }

// Never is an Attachment that is never attached.
type Never struct{}

func (Never) Attached(context.Context) bool { return false }

type interfaceLister func(ctx context.Context) (psnet.InterfaceStatList, error)

// Interface checks the host's network interfaces. With a Name set only that
// interface counts; otherwise any non-loopback interface does. An interface
// counts when it is up and has at least one address.
type Interface struct {
	Name string
	list interfaceLister
	log  logger.Logger
}

// NewInterface returns an Attachment backed by the host interface table.
func NewInterface(name string) *Interface {
	return &Interface{
		Name: name,
		list: psnet.InterfacesWithContext,
		log:  logger.Global().Module("netcheck"),
	}
}

func (i *Interface) Attached(ctx context.Context) bool {
	ifaces, err := i.list(ctx)
	if err != nil {
		i.log.Warn("listing network interfaces failed", logger.Error(err))
		return false
	}

	for _, iface := range ifaces {
		if i.Name != "" && iface.Name != i.Name {
			continue
		}
		if i.Name == "" && slices.Contains(iface.Flags, "loopback") {
			continue
		}
		if slices.Contains(iface.Flags, "up") && len(iface.Addrs) > 0 {
			return true
		}
	}
	return false
}

// New returns the Interface check when enabled and Always otherwise.
func New(enabled bool, name string) Attachment {
	if !enabled {
		return Always{}
	}
	return NewInterface(name)
}
