//go:build !linux

package mpris

import "log/slog"

// Adapter is never created outside Linux.
type Adapter struct{}

// New always fails with ErrUnsupported.
func New(Commands, Stations, *slog.Logger) (*Adapter, error) {
	return nil, ErrUnsupported
}

func (a *Adapter) Close() error {
	return nil
}
