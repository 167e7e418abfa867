//go:build linux

package notify

import (
	"os"
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/mattn/go-runewidth"
)

func TestNewDBusNotifier(t *testing.T) {
	// Skip if no D-Bus session (CI environment)
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no D-Bus session available")
	}

	notifier, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if notifier == nil {
		t.Fatal("New() returned nil notifier")
	}
}

func TestNotifyArgs(t *testing.T) {
	args := notifyArgs(Notification{
		Title:      "Groove Salad: " + strings.Repeat("ambient ", 10),
		Body:       "Boards of Canada - Roygbiv",
		Timeout:    5000,
		ReplacesID: 7,
		Urgency:    UrgencyCritical,
	})

	if len(args) != 8 {
		t.Fatalf("len(args) = %d, want 8", len(args))
	}
	if args[0] != "onair" {
		t.Errorf("app_name = %v, want onair", args[0])
	}
	if args[1] != uint32(7) {
		t.Errorf("replaces_id = %v, want 7", args[1])
	}
	summary := args[3].(string)
	if w := runewidth.StringWidth(summary); w != maxSummaryWidth {
		t.Errorf("summary width = %d, want %d", w, maxSummaryWidth)
	}
	if !strings.HasSuffix(summary, "…") {
		t.Errorf("summary %q is not marked as truncated", summary)
	}
	if args[4] != "Boards of Canada - Roygbiv" {
		t.Errorf("body = %v, want it unchanged", args[4])
	}
	hints := args[6].(map[string]dbus.Variant)
	if got := hints["urgency"].Value(); got != byte(UrgencyCritical) {
		t.Errorf("urgency hint = %v, want %d", got, UrgencyCritical)
	}
	if got := hints["desktop-entry"].Value(); got != "onair" {
		t.Errorf("desktop-entry hint = %v, want onair", got)
	}
	if args[7] != int32(5000) {
		t.Errorf("expire_timeout = %v, want 5000", args[7])
	}
}

func TestNotifySendsNotification(t *testing.T) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no D-Bus session available")
	}

	notifier, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	id, err := notifier.Notify(Notification{
		Title:   "onair test",
		Body:    "Test notification from unit test",
		Timeout: 1000, // 1 second
		Urgency: UrgencyLow,
	})
	if err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	// ID should be non-zero on success
	if id == 0 {
		t.Error("Notify() returned id=0, expected non-zero")
	}

	// Close it immediately
	if err := notifier.Close(id); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestNotifyReplacesExisting(t *testing.T) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no D-Bus session available")
	}

	notifier, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Send first notification
	id1, err := notifier.Notify(Notification{
		Title:   "Groove Salad",
		Body:    "Artist - Title",
		Timeout: 2000,
	})
	if err != nil {
		t.Fatalf("first Notify() error: %v", err)
	}

	// Replace it
	id2, err := notifier.Notify(Notification{
		Title:      "Drone Zone",
		Body:       "Artist - Title",
		Timeout:    1000,
		ReplacesID: id1,
	})
	if err != nil {
		t.Fatalf("second Notify() error: %v", err)
	}

	// IDs should match when replacing
	if id2 != id1 {
		t.Errorf("replacing notification got id=%d, want id=%d", id2, id1)
	}

	if err := notifier.Close(id2); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
