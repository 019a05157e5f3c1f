// Package devwatch tracks controller hotplug via udev netlink events. The
// engine keeps polling regardless; attach state only feeds status reporting
// and a position reset on re-attach, so netlink being unavailable is never
// fatal.
package devwatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"dialbridge/internal/config"
	"dialbridge/internal/logging"
)

// Monitor watches for HID add/remove events from the configured controller
// vendor.
type Monitor struct {
	vendorID string
	logger   *slog.Logger
	onAttach func()

	mu       sync.Mutex
	conn     *netlink.UEventConn
	quit     chan struct{}
	running  bool
	attached bool
}

// New builds a monitor from cfg. Returns nil when hotplug monitoring is
// disabled; a nil monitor is safe to use.
func New(cfg *config.Config, logger *slog.Logger, onAttach func()) *Monitor {
	if cfg == nil || !cfg.Devices.MonitorHotplug {
		return nil
	}
	vendor := strings.ToLower(strings.TrimSpace(cfg.Devices.VendorID))
	if vendor == "" {
		return nil
	}
	return &Monitor{
		vendorID: vendor,
		logger:   logging.NewComponentLogger(logger, "devwatch"),
		onAttach: onAttach,
	}
}

// Start connects to the udev netlink socket and begins watching. A connect
// failure is logged and swallowed: the bridge works without hotplug state.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; controller attach state unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "hotplug detection disabled"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("device monitor started", logging.String("vendor_id", m.vendorID))
	return nil
}

// Stop shuts the monitor down.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Info("device monitor stopped")
}

// Running reports whether the monitor is listening.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Attached reports whether a matching controller has been seen since start.
func (m *Monitor) Attached() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attached
}

func (m *Monitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())
	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
			)
		}
	}
}

// buildMatcher selects hidraw add/remove events; vendor filtering happens in
// handleEvent because udev reports the vendor in differently named env keys
// across kernel versions.
func (m *Monitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "hidraw",
		},
	})
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "usb",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	if !m.matchesVendor(uevent) {
		return
	}

	switch uevent.Action {
	case netlink.ADD:
		m.mu.Lock()
		wasAttached := m.attached
		m.attached = true
		m.mu.Unlock()

		m.logger.Info("controller attached",
			logging.String(logging.FieldEventType, "controller_attached"),
			logging.String("kobj", uevent.KObj),
		)
		// Re-attach resets the device host's accumulated counters, so the
		// dial baselines must re-anchor.
		if !wasAttached && m.onAttach != nil {
			m.onAttach()
		}
	case netlink.REMOVE:
		m.mu.Lock()
		m.attached = false
		m.mu.Unlock()
		m.logger.Info("controller detached",
			logging.String(logging.FieldEventType, "controller_detached"),
			logging.String("kobj", uevent.KObj),
		)
	}
}

func (m *Monitor) matchesVendor(uevent netlink.UEvent) bool {
	for _, key := range []string{"ID_VENDOR_ID", "VENDOR_ID"} {
		if v, ok := uevent.Env[key]; ok {
			return strings.EqualFold(v, m.vendorID)
		}
	}
	// PRODUCT is "vendor/product/bcd" in lowercase hex without padding.
	if product, ok := uevent.Env["PRODUCT"]; ok {
		parts := strings.Split(product, "/")
		if len(parts) > 0 {
			return strings.EqualFold(strings.TrimLeft(m.vendorID, "0"), strings.TrimLeft(parts[0], "0"))
		}
	}
	return false
}
