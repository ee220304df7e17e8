//go:build !linux

package gpio

import "github.com/pkg/errors"

// CdevSource is not available on non-Linux platforms.
type CdevSource struct{}

// NewCdevSource returns a source whose Start always fails.
func NewCdevSource(chip string, offset int) *CdevSource {
	return &CdevSource{}
}

// Start is not implemented on non-Linux platforms.
func (s *CdevSource) Start(h EdgeHandler) error {
	return errors.New("gpio: character device not supported on this platform (requires Linux)")
}

// Close is not implemented on non-Linux platforms.
func (s *CdevSource) Close() error {
	return nil
}
