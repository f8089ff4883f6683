// Package port checks whether the configured listener ports can be bound.
package port

import (
	"maps"
	"net"
	"slices"
)

// Status is the outcome of probing one listen address.
type Status struct {
	Name      string `json:"name"`
	Addr      string `json:"addr"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Available reports whether addr can currently be bound. The probe listener
// is closed again before returning.
func Available(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ln.Close()
}

// Check probes each named address. Port 0 is always reported available.
func Check(addrs map[string]string) []Status {
	var out []Status
	for _, name := range slices.Sorted(maps.Keys(addrs)) {
		addr := addrs[name]
		st := Status{Name: name, Addr: addr, Available: true}
		if err := Available(addr); err != nil {
			st.Available = false
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	return out
}
