// Package discovery finds print-capable devices on the local network by
// sweeping subnets with multi-protocol port probes, supplemented by
// passive mDNS announcements.
package discovery

import (
	"fmt"
	"net"
	"strings"
)

// NetworkInfo reports the device's active IPv4 addresses. It is an
// interface so tests and unusual environments can substitute detection.
type NetworkInfo interface {
	// ActiveIPv4 returns the non-loopback IPv4 addresses currently
	// assigned to the host, most preferred first.
	ActiveIPv4() ([]string, error)
}

// fallbackSubnets are swept when no local address can be determined.
// Discovery degrades to the common private ranges instead of aborting.
var fallbackSubnets = []string{
	"192.168.1",
	"192.168.0",
	"192.168.10",
	"10.0.0",
	"10.0.1",
	"172.16.0",
}

// InterfaceNetworkInfo detects addresses from the host's interfaces.
type InterfaceNetworkInfo struct{}

// ActiveIPv4 walks the interface address list.
func (InterfaceNetworkInfo) ActiveIPv4() ([]string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("list interface addresses: %w", err)
	}

	var ips []string
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.To4() == nil {
			continue
		}
		ips = append(ips, ipnet.IP.String())
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no active IPv4 address found")
	}
	return ips, nil
}

// subnetsFor derives the /24 prefixes to sweep. Detection failure falls
// back to the fixed private-subnet list; duplicates are removed either
// way.
func subnetsFor(info NetworkInfo) []string {
	var candidates []string

	ips, err := info.ActiveIPv4()
	if err != nil || len(ips) == 0 {
		candidates = fallbackSubnets
	} else {
		for _, ip := range ips {
			parts := strings.Split(ip, ".")
			if len(parts) == 4 {
				candidates = append(candidates, strings.Join(parts[:3], "."))
			}
		}
		if len(candidates) == 0 {
			candidates = fallbackSubnets
		}
	}

	seen := make(map[string]bool, len(candidates))
	var subnets []string
	for _, s := range candidates {
		if !seen[s] {
			seen[s] = true
			subnets = append(subnets, s)
		}
	}
	return subnets
}
