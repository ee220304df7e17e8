package web

import (
	"encoding/json"

	"github.com/sweeney/rf433-receiver/internal/decoder"
	"github.com/sweeney/rf433-receiver/internal/mqtt"
	"github.com/sweeney/rf433-receiver/internal/protocol"
)

// ProtocolJSON describes one catalog protocol and whether the receiver
// decodes it.
type ProtocolJSON struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Timing  string `json:"timing"`
	Bits    int    `json:"bits"`
	Enabled bool   `json:"enabled"`
}

// formatProtocols lists the whole catalog, marking the enabled names.
func formatProtocols(enabled []string) []byte {
	on := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		on[name] = true
	}

	list := []ProtocolJSON{}
	for _, name := range protocol.Names() {
		cfg, _ := protocol.Lookup(name)
		p := ProtocolJSON{Name: name, Enabled: on[name]}
		switch c := cfg.(type) {
		case decoder.AdaptiveConfig:
			p.ID, p.Timing, p.Bits = mqtt.FormatProtocol(c.ID), "adaptive", c.CodeBits
		case decoder.FixedConfig:
			p.ID, p.Timing, p.Bits = mqtt.FormatProtocol(c.ID), "fixed", c.CodeBits
		}
		list = append(list, p)
	}

	data, _ := json.Marshal(list)
	return data
}
