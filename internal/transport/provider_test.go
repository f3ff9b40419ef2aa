package transport

import (
	"strings"
	"testing"
)

func TestSplitURI(t *testing.T) {
	tests := []struct {
		uri     string
		vendor  string
		scheme  string
		addr    string
		wantErr bool
	}{
		{uri: "zfp.serial://COM3", vendor: "zfp", scheme: "serial", addr: "COM3"},
		{uri: "zfp.serial://COM3:115200", vendor: "zfp", scheme: "serial", addr: "COM3:115200"},
		{uri: "isl.tcp://192.168.0.35:4999", vendor: "isl", scheme: "tcp", addr: "192.168.0.35:4999"},
		{uri: "serial://COM3", wantErr: true},
		{uri: "zfp.serial://", wantErr: true},
		{uri: "COM3", wantErr: true},
		{uri: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			vendor, scheme, addr, err := splitURI(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("splitURI(%q) succeeded; want error", tt.uri)
				}
				return
			}
			if err != nil {
				t.Fatalf("splitURI(%q) error: %v", tt.uri, err)
			}
			if vendor != tt.vendor || scheme != tt.scheme || addr != tt.addr {
				t.Errorf("splitURI(%q) = %q/%q/%q; want %q/%q/%q",
					tt.uri, vendor, scheme, addr, tt.vendor, tt.scheme, tt.addr)
			}
		})
	}
}

func TestSplitSerialAddr(t *testing.T) {
	tests := []struct {
		addr    string
		port    string
		baud    int
		wantErr bool
	}{
		{addr: "COM3", port: "COM3", baud: 0},
		{addr: "COM3:115200", port: "COM3", baud: 115200},
		{addr: "/dev/ttyUSB0", port: "/dev/ttyUSB0", baud: 0},
		{addr: "COM3:fast", wantErr: true},
		{addr: "COM3:-9600", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			port, baud, err := splitSerialAddr(tt.addr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("splitSerialAddr(%q) succeeded; want error", tt.addr)
				}
				return
			}
			if err != nil {
				t.Fatalf("splitSerialAddr(%q) error: %v", tt.addr, err)
			}
			if port != tt.port || baud != tt.baud {
				t.Errorf("splitSerialAddr(%q) = %q/%d; want %q/%d",
					tt.addr, port, baud, tt.port, tt.baud)
			}
		})
	}
}

func TestNewVendorDriver(t *testing.T) {
	ep := &memEndpoint{}
	ch := &FramedChannel{rw: ep}

	for _, vendor := range []string{"zfp", "isl"} {
		if _, err := newVendorDriver(vendor, ch); err != nil {
			t.Errorf("newVendorDriver(%q) error: %v", vendor, err)
		}
	}
	if _, err := newVendorDriver("acme", ch); err == nil || !strings.Contains(err.Error(), "acme") {
		t.Errorf("unknown vendor err = %v; want it named", err)
	}
}

func TestProviderConnect_BadURIs(t *testing.T) {
	p := &Provider{}

	for _, uri := range []string{"COM3", "zfp.infrared://COM3", "acme.serial://COM3"} {
		if _, err := p.Connect(uri); err == nil {
			t.Errorf("Connect(%q) succeeded; want error", uri)
		}
	}
}
