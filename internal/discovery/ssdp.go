package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/muurk/lantern/internal/logging"
)

const (
	// SSDPAddr is the IPv4 multicast group and port for SSDP.
	SSDPAddr = "239.255.255.250:1900"

	// SearchAll asks every UPnP device to answer.
	SearchAll = "ssdp:all"
	// SearchRoku asks Roku ECP devices to answer.
	SearchRoku = "roku:ecp"

	// DefaultTimeout is the default discovery window.
	DefaultTimeout = 5 * time.Second

	// pollInterval bounds each blocking read so cancellation is noticed quickly.
	pollInterval = 500 * time.Millisecond

	searchMX       = 3
	maxDatagram    = 4096
	multicastTTL   = 2
	headerLocation = "LOCATION"
)

// SSDPSearcher sends one M-SEARCH and collects replies until the window closes.
type SSDPSearcher struct {
	// Target overrides the destination address; defaults to SSDPAddr.
	Target string
	// Classifier infers type and vendor; defaults to DefaultClassifier.
	Classifier *Classifier

	logger *zap.Logger
}

// NewSSDPSearcher creates a searcher with default settings
func NewSSDPSearcher() *SSDPSearcher {
	return &SSDPSearcher{Target: SSDPAddr}
}

// BuildSearchRequest returns the M-SEARCH datagram for a search target.
func BuildSearchRequest(searchTarget string) []byte {
	return []byte("M-SEARCH * HTTP/1.1\r\n" +
		"HOST: " + SSDPAddr + "\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		fmt.Sprintf("MX: %d\r\n", searchMX) +
		"ST: " + searchTarget + "\r\n" +
		"\r\n")
}

// Search multicasts an M-SEARCH for searchTarget and returns every reply
// that carries a LOCATION header. Reads happen in short slices so that ctx
// cancellation takes effect within pollInterval.
func (s *SSDPSearcher) Search(ctx context.Context, searchTarget string, timeout time.Duration) ([]DiscoveredDevice, error) {
	log := s.log()
	target := s.Target
	if target == "" {
		target = SSDPAddr
	}
	dst, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return nil, fmt.Errorf("invalid SSDP target %q: %w", target, err)
	}

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to open SSDP socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(multicastTTL); err != nil {
		log.Debug("Could not set multicast TTL", zap.Error(err))
	}

	if _, err := conn.WriteTo(BuildSearchRequest(searchTarget), dst); err != nil {
		return nil, fmt.Errorf("failed to send M-SEARCH: %w", err)
	}

	classifier := s.Classifier
	if classifier == nil {
		classifier = &DefaultClassifier
	}

	var devices []DiscoveredDevice
	buf := make([]byte, maxDatagram)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		slice := time.Now().Add(pollInterval)
		if slice.After(deadline) {
			slice = deadline
		}
		if err := conn.SetReadDeadline(slice); err != nil {
			return devices, fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			log.Debug("SSDP read error", zap.Error(err))
			continue
		}

		ip := hostOf(addr)
		device, ok := ParseSSDPResponse(string(buf[:n]), ip, classifier)
		if !ok {
			continue
		}
		logging.LogSSDPResponse(ip, device.Header("ST"), device.Location)
		devices = append(devices, device)
	}

	return devices, nil
}

// ParseSSDPResponse reads the header block of an SSDP reply. Replies without
// LOCATION are rejected since there is no description to fetch.
func ParseSSDPResponse(response, ip string, classifier *Classifier) (DiscoveredDevice, bool) {
	headers := make(map[string]string)
	for _, line := range strings.Split(response, "\r\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	location := headers[headerLocation]
	if location == "" {
		return DiscoveredDevice{}, false
	}

	if classifier == nil {
		classifier = &DefaultClassifier
	}
	deviceType, manufacturer := classifier.Classify(headers)

	server := headers["SERVER"]
	name := ""
	if server != "" {
		name, _, _ = strings.Cut(server, "/")
	}

	var services []string
	if st := headers["ST"]; st != "" {
		services = []string{st}
	}

	return DiscoveredDevice{
		IP:           ip,
		Protocol:     ProtocolUPnP,
		DeviceType:   deviceType,
		Name:         name,
		Manufacturer: manufacturer,
		Location:     location,
		Services:     services,
		Headers:      headers,
		DiscoveredAt: time.Now(),
	}, true
}

func (s *SSDPSearcher) log() *zap.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.GetLogger()
}

func hostOf(addr net.Addr) string {
	if udp, ok := addr.(*net.UDPAddr); ok {
		return udp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
