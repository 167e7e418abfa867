//go:build !linux

package notify

// New returns Nop(): desktop notifications need the freedesktop D-Bus service.
func New() (Notifier, error) {
	return Nop(), nil
}
