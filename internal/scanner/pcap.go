package scanner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/tphakala/proxnode/internal/errors"
	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/observation"
)

const defaultPcapWindow = 2 * time.Second

// PcapConfig replays a radiotap 802.11 capture.
type PcapConfig struct {
	Path string
	// Window groups frames by capture time; each Scan returns one window.
	Window time.Duration
	// Loop restarts the capture at end of file.
	Loop bool
}

// Pcap turns beacon and probe response frames of a capture into scans.
type Pcap struct {
	cfg    PcapConfig
	file   *os.File
	reader *pcapgo.Reader
	// carry is the first frame of the next window.
	carry *frame
	log   logger.Logger
}

type frame struct {
	at  time.Time
	obs observation.Observation
}

// NewPcap opens the capture and checks its link type. A missing or
// unusable capture is a configuration error.
func NewPcap(cfg PcapConfig) (*Pcap, error) {
	if cfg.Path == "" {
		return nil, configError(errors.NewStd("pcap path is required"), TypePcap)
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultPcapWindow
	}
	p := &Pcap{cfg: cfg, log: GetLogger().With(logger.String("pcap", cfg.Path))}
	if err := p.rewind(); err != nil {
		return nil, configError(err, TypePcap)
	}
	return p, nil
}

func (p *Pcap) Name() string { return TypePcap }

func (p *Pcap) rewind() error {
	if p.file != nil {
		_ = p.file.Close()
	}
	f, err := os.Open(p.cfg.Path)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("read capture header: %w", err)
	}
	if r.LinkType() != layers.LinkTypeIEEE80211Radio {
		_ = f.Close()
		return fmt.Errorf("capture link type %s is not 802.11 radiotap", r.LinkType())
	}
	p.file, p.reader, p.carry = f, r, nil
	return nil
}

// Scan returns the strongest sample per BSSID within the next capture
// window. At end of capture it returns no results, or rewinds when Loop is
// set.
func (p *Pcap) Scan(ctx context.Context) ([]observation.Observation, error) {
	if p.reader == nil {
		return nil, nil
	}

	var (
		start   time.Time
		rewound bool
		order   []string
		byBSSID = make(map[string]observation.Observation)
	)

	add := func(fr *frame) {
		prev, seen := byBSSID[fr.obs.BSSID]
		if !seen {
			order = append(order, fr.obs.BSSID)
		}
		if !seen || fr.obs.RSSI > prev.RSSI || (prev.Hidden && !fr.obs.Hidden) {
			byBSSID[fr.obs.BSSID] = fr.obs
		}
	}

	if p.carry != nil {
		start = p.carry.at
		add(p.carry)
		p.carry = nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fr, err := p.next()
		if errors.Is(err, io.EOF) {
			if !p.cfg.Loop {
				p.close()
				break
			}
			p.log.Debug("capture exhausted, rewinding")
			if err := p.rewind(); err != nil {
				return nil, scanError(err, TypePcap)
			}
			// an empty window right at the end continues from the start,
			// once, so a capture without beacons cannot spin here
			if len(order) == 0 && !rewound {
				rewound = true
				continue
			}
			break
		}
		if err != nil {
			return nil, scanError(err, TypePcap)
		}
		if start.IsZero() {
			start = fr.at
		}
		if fr.at.Sub(start) >= p.cfg.Window {
			p.carry = fr
			break
		}
		add(fr)
	}

	out := make([]observation.Observation, 0, len(order))
	for _, id := range order {
		out = append(out, byBSSID[id])
	}
	return out, nil
}

// next returns the next beacon or probe response frame, skipping others.
func (p *Pcap) next() (*frame, error) {
	for {
		data, ci, err := p.reader.ReadPacketData()
		if err != nil {
			return nil, err
		}
		obs, ok := decodeBeacon(data)
		if !ok {
			continue
		}
		return &frame{at: ci.Timestamp, obs: obs}, nil
	}
}

// decodeBeacon extracts an observation from a radiotap-framed management
// frame. ok is false for frames that are not beacons or probe responses or
// carry no signal strength.
func decodeBeacon(data []byte) (observation.Observation, bool) {
	packet := gopacket.NewPacket(data, layers.LayerTypeRadioTap, gopacket.NoCopy)

	rt, ok := packet.Layer(layers.LayerTypeRadioTap).(*layers.RadioTap)
	if !ok || !rt.Present.DBMAntennaSignal() {
		return observation.Observation{}, false
	}
	dot11, ok := packet.Layer(layers.LayerTypeDot11).(*layers.Dot11)
	if !ok {
		return observation.Observation{}, false
	}
	if dot11.Type != layers.Dot11TypeMgmtBeacon && dot11.Type != layers.Dot11TypeMgmtProbeResp {
		return observation.Observation{}, false
	}

	obs := observation.Observation{
		BSSID: dot11.Address3.String(),
		RSSI:  int(rt.DBMAntennaSignal),
	}
	if rt.Present.Channel() {
		obs.Channel = channelFromFrequency(int(rt.ChannelFrequency))
	}

	for _, l := range packet.Layers() {
		ie, ok := l.(*layers.Dot11InformationElement)
		if !ok {
			continue
		}
		switch ie.ID {
		case layers.Dot11InformationElementIDSSID:
			if !allZero(ie.Info) {
				obs.SSID = string(ie.Info)
			}
		case layers.Dot11InformationElementIDDSSet:
			if len(ie.Info) == 1 {
				obs.Channel = int(ie.Info[0])
			}
		}
	}

	return obs.Normalize(), true
}

// allZero reports whether b is empty or only NUL bytes, the two ways a
// hidden network blanks its SSID.
func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func (p *Pcap) close() {
	if p.file != nil {
		_ = p.file.Close()
	}
	p.file, p.reader, p.carry = nil, nil, nil
}

func (p *Pcap) Close() error {
	p.close()
	return nil
}
