package netcheck

import (
	"context"
	"errors"
	"io"
	"testing"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"

	"github.com/tphakala/proxnode/internal/logger"
)

func staticList(list psnet.InterfaceStatList, err error) interfaceLister {
	return func(context.Context) (psnet.InterfaceStatList, error) { return list, err }
}

func TestInterfaceAttached(t *testing.T) {
	t.Parallel()

	lo := psnet.InterfaceStat{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: psnet.InterfaceAddrList{{Addr: "127.0.0.1/8"}}}
	wlanUp := psnet.InterfaceStat{Name: "wlan0", Flags: []string{"up", "broadcast"}, Addrs: psnet.InterfaceAddrList{{Addr: "192.168.1.20/24"}}}
	wlanNoAddr := psnet.InterfaceStat{Name: "wlan0", Flags: []string{"up", "broadcast"}}
	ethDown := psnet.InterfaceStat{Name: "eth0", Flags: []string{"broadcast"}, Addrs: psnet.InterfaceAddrList{{Addr: "10.0.0.2/24"}}}

	tests := []struct {
		name  string
		iface string
		list  psnet.InterfaceStatList
		err   error
		want  bool
	}{
		{name: "loopback only", list: psnet.InterfaceStatList{lo}, want: false},
		{name: "wireless up", list: psnet.InterfaceStatList{lo, wlanUp}, want: true},
		{name: "up without address", list: psnet.InterfaceStatList{lo, wlanNoAddr}, want: false},
		{name: "down with address", list: psnet.InterfaceStatList{ethDown}, want: false},
		{name: "named interface present", iface: "wlan0", list: psnet.InterfaceStatList{ethDown, wlanUp}, want: true},
		{name: "named interface absent", iface: "wlan1", list: psnet.InterfaceStatList{wlanUp}, want: false},
		{name: "named loopback counts", iface: "lo", list: psnet.InterfaceStatList{lo}, want: true},
		{name: "listing fails", list: nil, err: errors.New("netlink"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			check := &Interface{
				Name: tt.iface,
				list: staticList(tt.list, tt.err),
				log:  logger.NewWriterLogger(io.Discard, logger.LogLevelError).Module("netcheck"),
			}
			assert.Equal(t, tt.want, check.Attached(context.Background()))
		})
	}
}

func TestNewSelectsCheck(t *testing.T) {
	t.Parallel()

	assert.IsType(t, Always{}, New(false, ""))
	assert.IsType(t, &Interface{}, New(true, "wlan0"))
	assert.False(t, Never{}.Attached(context.Background()))
}
