package decoder

import (
	log "github.com/sirupsen/logrus"
)

// Config is implemented by AdaptiveConfig and FixedConfig.
type Config interface {
	build() (Decoder, error)
	name() string
}

func (c AdaptiveConfig) build() (Decoder, error) {
	d, err := NewAdaptive(c)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (c AdaptiveConfig) name() string { return c.Name }

func (c FixedConfig) build() (Decoder, error) {
	d, err := NewFixed(c)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (c FixedConfig) name() string { return c.Name }

// Registry is the ordered set of active decoders. It is built once and is
// read-only afterwards; the decoders themselves belong to whichever
// goroutine calls Input.
type Registry struct {
	decoders []Decoder
}

// NewRegistry builds a decoder for every config, in order. A config that
// fails to build is logged and left out; the remaining protocols still run.
func NewRegistry(configs ...Config) *Registry {
	r := &Registry{decoders: make([]Decoder, 0, len(configs))}
	for _, c := range configs {
		d, err := c.build()
		if err != nil {
			log.WithError(err).WithField("protocol", c.name()).Error("decoder disabled")
			continue
		}
		r.decoders = append(r.decoders, d)
	}
	if len(r.decoders) == 0 {
		log.Warn("no protocols enabled")
	}
	return r
}

// NewRegistryOf wraps already constructed decoders.
func NewRegistryOf(decoders ...Decoder) *Registry {
	return &Registry{decoders: decoders}
}

// Input feeds p to every decoder in registration order.
func (r *Registry) Input(p Pulse, emit EmitFunc) {
	for _, d := range r.decoders {
		d.Input(p, emit)
	}
}

// Reset resets every decoder.
func (r *Registry) Reset(emit EmitFunc) {
	for _, d := range r.decoders {
		d.Reset(emit)
	}
}

// Len returns the number of active decoders.
func (r *Registry) Len() int {
	return len(r.decoders)
}

// Names lists the active protocols in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.decoders))
	for i, d := range r.decoders {
		names[i] = d.Name()
	}
	return names
}

// NameOf returns the name of the protocol with the given id, or "".
func (r *Registry) NameOf(id uint16) string {
	for _, d := range r.decoders {
		if d.Protocol() == id {
			return d.Name()
		}
	}
	return ""
}
