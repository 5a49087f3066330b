package netutil

import (
	"net"
)

// MustParseCIDRs parses CIDR strings into []*net.IPNet. Invalid entries
// are skipped rather than fatal so a typo in config cannot lock out the
// admin surface entirely.
func MustParseCIDRs(cidrs []string) (out []*net.IPNet) {
	for _, s := range cidrs {
		_, n, err := net.ParseCIDR(s)
		if err == nil && n != nil {
			out = append(out, n)
		}
	}
	return
}
