package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"
)

const (
	oidSysName  = "1.3.6.1.2.1.1.5.0"
	oidSysDescr = "1.3.6.1.2.1.1.1.0"
)

// SNMPNamer looks up a device's advertised name over SNMP. Most network
// printers expose sysName with the model or the operator-assigned name,
// which makes scan results far easier to tell apart than bare IPs.
type SNMPNamer struct {
	Community string
	Timeout   time.Duration
	Logger    *zap.Logger
}

var _ Namer = (*SNMPNamer)(nil)

// Lookup queries sysName, falling back to the first line of sysDescr.
// Failures return an empty string; discovery works fine without names.
func (n *SNMPNamer) Lookup(ctx context.Context, ip string) string {
	community := n.Community
	if community == "" {
		community = "public"
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}

	client := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    ip,
		Port:      161,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   0,
	}
	if err := client.Connect(); err != nil {
		return ""
	}
	defer client.Conn.Close()

	result, err := client.Get([]string{oidSysName, oidSysDescr})
	if err != nil {
		if n.Logger != nil {
			n.Logger.Debug("snmp lookup failed", zap.String("ip", ip), zap.Error(err))
		}
		return ""
	}

	var sysName, sysDescr string
	for _, v := range result.Variables {
		raw, ok := v.Value.([]byte)
		if !ok {
			continue
		}
		switch v.Name {
		case "." + oidSysName:
			sysName = strings.TrimSpace(string(raw))
		case "." + oidSysDescr:
			sysDescr = strings.TrimSpace(string(raw))
		}
	}
	if sysName != "" {
		return sysName
	}
	if line, _, found := strings.Cut(sysDescr, "\n"); found {
		return strings.TrimSpace(line)
	}
	return sysDescr
}
