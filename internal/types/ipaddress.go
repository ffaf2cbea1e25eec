package types

import (
	"encoding/json"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/vtable/vtable/internal/errs"
)

// IPAddress accepts IPv4 and IPv6 addresses. With a "prefix" option the
// canonical address string must start with it.
type IPAddress struct {
	prefix string
}

// NewIPAddress builds an IPAddress from option "prefix".
func NewIPAddress(option map[string]any) (ValueType, error) {
	ip := &IPAddress{}
	v, ok := option["prefix"]
	if !ok || v == nil {
		return ip, nil
	}
	switch p := v.(type) {
	case string:
		ip.prefix = p
	case float64, int, int64, json.Number:
		ip.prefix = fmt.Sprint(p)
	default:
		return nil, fmt.Errorf("%w: option prefix: %v is not a string", errs.ErrValidation, v)
	}
	return ip, nil
}

func (ip *IPAddress) Name() string { return "IPAddress" }

func (ip *IPAddress) Stringify(v any) (string, error) {
	var s string
	switch a := v.(type) {
	case string:
		s = a
	case netip.Addr:
		s = a.String()
	case net.IP:
		s = a.String()
	default:
		return "", fmt.Errorf("%w: %v does not look like an ip address", errs.ErrValidation, v)
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q does not look like an ip address", errs.ErrValidation, s)
	}
	canonical := addr.String()
	if !strings.HasPrefix(canonical, ip.prefix) {
		return "", fmt.Errorf("%w: %s must start with %s", errs.ErrValidation, canonical, ip.prefix)
	}
	return canonical, nil
}

func (ip *IPAddress) Destringify(s string) (any, error) {
	return s, nil
}
