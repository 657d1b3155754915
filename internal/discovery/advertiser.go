// Package discovery advertises the dashboard on the local network over mDNS
// so phones and laptops can find it without knowing the host's address.
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service type the dashboard registers under.
const ServiceType = "_tvctl-dash._tcp"

// Metadata holds the TXT record fields for the service.
type Metadata struct {
	Version     string // dashboard version
	TVHost      string // address of the TV being controlled
	DisplayName string // human-readable instance name
}

// Config holds configuration for the mDNS advertiser.
type Config struct {
	InstanceName string // name of the service instance
	Port         int    // port where the dashboard is running
	Meta         Metadata
}

// Advertiser manages the mDNS service registration.
type Advertiser struct {
	servers []*mdns.Server
	cfg     Config
}

// NewAdvertiser creates a new advertiser with the given config.
func NewAdvertiser(cfg Config) (*Advertiser, error) {
	if cfg.InstanceName == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("port must be > 0")
	}

	return &Advertiser{cfg: cfg}, nil
}

// Start begins advertising the service. It returns immediately; the mdns
// library answers queries on its own goroutines.
func (a *Advertiser) Start() error {
	txt := []string{
		fmt.Sprintf("version=%s", a.cfg.Meta.Version),
		fmt.Sprintf("tvHost=%s", a.cfg.Meta.TVHost),
		fmt.Sprintf("displayName=%s", a.cfg.Meta.DisplayName),
	}

	service, err := mdns.NewMDNSService(
		a.cfg.InstanceName,
		ServiceType,
		"",
		"",
		a.cfg.Port,
		nil, // IPs (nil = all interfaces)
		txt,
	)
	if err != nil {
		return fmt.Errorf("create mdns service: %w", err)
	}

	// Bind every multicast-capable interface; mdns.NewServer starts
	// advertising immediately.
	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("list interfaces: %w", err)
	}

	var servers []*mdns.Server
	ifaceFilter := strings.TrimSpace(os.Getenv("TVCTL_MDNS_IFACE"))
	for _, iface := range ifaces {
		iface := iface
		if ifaceFilter != "" && iface.Name != ifaceFilter {
			continue
		}
		if (iface.Flags&net.FlagUp) == 0 || (iface.Flags&net.FlagMulticast) == 0 {
			continue
		}

		server, err := mdns.NewServer(&mdns.Config{
			Zone:  service,
			Iface: &iface,
		})
		if err != nil {
			slog.Warn("mdns interface bind failed", "iface", iface.Name, "error", err)
			continue
		}
		slog.Info("mdns interface bound", "iface", iface.Name)
		servers = append(servers, server)
	}

	// Fall back to the default interface if none succeeded and no explicit
	// filter was set.
	if len(servers) == 0 && ifaceFilter == "" {
		server, err := mdns.NewServer(&mdns.Config{Zone: service})
		if err != nil {
			return fmt.Errorf("start mdns server: %w", err)
		}
		servers = append(servers, server)
	}
	if len(servers) == 0 {
		return fmt.Errorf("no mdns interfaces bound (filter=%q)", ifaceFilter)
	}

	a.servers = servers
	return nil
}

// Stop shuts down the mDNS advertisement.
func (a *Advertiser) Stop() error {
	var firstErr error
	for _, server := range a.servers {
		if server == nil {
			continue
		}
		if err := server.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
