// Package protocol holds the catalog of known remote-control protocols and
// turns a protocol list from the command line into decoder configs.
package protocol

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/sweeney/rf433-receiver/internal/decoder"
)

// Protocol IDs as reported in events.
const (
	IDEV1527    uint16 = 0x1527
	IDKingSerry uint16 = 0x0000
)

// EV1527 is the common learning-code chip: 1:31 sync, {3,1}/{1,3} bits,
// 20-bit address plus 4 data bits. Its clock depends on an external
// resistor, so timing is calibrated from the sync.
var EV1527 = decoder.AdaptiveConfig{
	ID:        IDEV1527,
	Name:      "ev1527",
	SyncClock: 32,
	BitClock:  4,
	CodeBits:  24,
}

// KingSerry is the NEC-like protocol of Shenzhen King-Serry devices (also
// sold as Smernit). Timing is fixed.
var KingSerry = decoder.FixedConfig{
	ID:        IDKingSerry,
	Name:      "kingserry",
	SyncStart: decoder.Window{Min: 185, Max: 215},
	SyncWidth: decoder.Window{Min: 780, Max: 810},
	Bit0:      decoder.Window{Min: 180, Max: 230},
	Bit1:      decoder.Window{Min: 370, Max: 420},
	CodeBits:  40,
}

var catalog = map[string]decoder.Config{
	EV1527.Name:    EV1527,
	KingSerry.Name: KingSerry,
}

// Default is the protocol list used when none is given.
const Default = "ev1527"

// Names returns the catalog's protocol names, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the config for a protocol name.
func Lookup(name string) (decoder.Config, bool) {
	c, ok := catalog[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Parse resolves a comma separated protocol list, keeping its order.
// Duplicates are ignored. An empty list yields no protocols.
func Parse(list string) ([]decoder.Config, error) {
	var configs []decoder.Config
	seen := map[string]bool{}
	for _, part := range strings.Split(list, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		c, ok := catalog[name]
		if !ok {
			return nil, errors.Errorf("unknown protocol %q (known: %s)", name, strings.Join(Names(), ", "))
		}
		seen[name] = true
		configs = append(configs, c)
	}
	return configs, nil
}
