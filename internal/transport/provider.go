package transport

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/adcondev/fiscal-daemon/internal/fiscal"
	"github.com/adcondev/fiscal-daemon/internal/fiscal/isl"
	"github.com/adcondev/fiscal-daemon/internal/fiscal/zfp"
)

// vendorDriver is what the factory needs on top of the public Driver
// contract: the connect-time identity probe and post-connect hooks.
type vendorDriver interface {
	fiscal.Driver
	ReadDeviceInfo() (fiscal.DeviceInfo, fiscal.DeviceStatus)
	SetURI(uri string)
	OverridePaymentTokens(map[fiscal.PaymentType]string)
}

// Provider connects vendor drivers to printer URIs and scans serial ports
// for attached devices. URIs have the form
//
//	<vendor>.<scheme>://<address>
//
// e.g. zfp.serial://COM3:115200 or isl.tcp://192.168.0.35:4999.
type Provider struct {
	// Timeout bounds one command round-trip on a channel.
	Timeout time.Duration
	// PaymentTokens returns the configured per-serial payment remap, or nil.
	PaymentTokens func(serialNumber string) map[fiscal.PaymentType]string
}

// Connect opens the channel a URI names, binds the matching vendor driver,
// and probes the device identity. The caller owns the returned driver; a
// probe failure closes the channel.
func (p *Provider) Connect(uri string) (fiscal.Driver, error) {
	vendor, scheme, addr, err := splitURI(uri)
	if err != nil {
		return nil, err
	}

	ch, err := p.openChannel(scheme, addr)
	if err != nil {
		return nil, err
	}

	drv, err := newVendorDriver(vendor, ch)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	info, status := drv.ReadDeviceInfo()
	if !status.Ok() {
		_ = ch.Close()
		return nil, fmt.Errorf("probe %s: %s", uri, status.FirstErrorText())
	}
	drv.SetURI(uri)
	if p.PaymentTokens != nil {
		if remap := p.PaymentTokens(info.SerialNumber); len(remap) > 0 {
			drv.OverridePaymentTokens(remap)
		}
	}
	return drv, nil
}

// DetectAvailablePrinters probes every host serial port with each vendor
// family and returns the drivers that answered, keyed by serial number.
// Ports that fail to open or answer are skipped, not fatal.
func (p *Provider) DetectAvailablePrinters() map[string]fiscal.Driver {
	found := make(map[string]fiscal.Driver)
	ports, err := ListSerialPorts()
	if err != nil {
		log.Printf("[DETECT] ⚠️ Cannot enumerate serial ports: %v", err)
		return found
	}
	for _, port := range ports {
		for _, vendor := range []string{"zfp", "isl"} {
			uri := vendor + ".serial://" + port
			drv, err := p.Connect(uri)
			if err != nil {
				continue
			}
			info := drv.DeviceInfo()
			log.Printf("[DETECT] 🖨️ Found %s printer %s on %s", vendor, info.SerialNumber, port)
			found[info.SerialNumber] = drv
			break
		}
	}
	return found
}

func (p *Provider) openChannel(scheme, addr string) (*FramedChannel, error) {
	switch scheme {
	case "serial":
		port, baud, err := splitSerialAddr(addr)
		if err != nil {
			return nil, err
		}
		return OpenSerial(port, baud, p.Timeout)
	case "tcp":
		return OpenTCP(addr, p.Timeout)
	default:
		return nil, fmt.Errorf("unknown transport scheme %q", scheme)
	}
}

func newVendorDriver(vendor string, ch fiscal.Channel) (vendorDriver, error) {
	switch vendor {
	case "zfp":
		return zfp.NewDriver(ch), nil
	case "isl":
		return isl.NewDriver(ch), nil
	default:
		return nil, fmt.Errorf("unknown printer vendor %q", vendor)
	}
}

func splitURI(uri string) (vendor, scheme, addr string, err error) {
	head, addr, ok := strings.Cut(uri, "://")
	if !ok || addr == "" {
		return "", "", "", fmt.Errorf("malformed printer URI %q", uri)
	}
	vendor, scheme, ok = strings.Cut(head, ".")
	if !ok {
		return "", "", "", fmt.Errorf("printer URI %q lacks a vendor prefix", uri)
	}
	return vendor, scheme, addr, nil
}

// splitSerialAddr accepts "COM3" or "COM3:115200".
func splitSerialAddr(addr string) (port string, baud int, err error) {
	port, rate, ok := strings.Cut(addr, ":")
	if !ok {
		return port, 0, nil
	}
	baud, err = strconv.Atoi(rate)
	if err != nil || baud <= 0 {
		return "", 0, fmt.Errorf("bad baud rate in serial address %q", addr)
	}
	return port, baud, nil
}
