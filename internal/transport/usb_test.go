package transport

import (
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUSBPortID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		vid     gousb.ID
		pid     gousb.ID
		auto    bool
		wantErr bool
	}{
		{name: "plain hex", in: "04b8:0e15", vid: 0x04b8, pid: 0x0e15},
		{name: "prefixed", in: "0x0416:0x5011", vid: 0x0416, pid: 0x5011},
		{name: "upper prefix", in: "0X0416:5011", vid: 0x0416, pid: 0x5011},
		{name: "auto", in: "auto", auto: true},
		{name: "auto any case", in: " AUTO ", auto: true},
		{name: "missing pid", in: "04b8", wantErr: true},
		{name: "bad hex", in: "zzzz:0001", wantErr: true},
		{name: "too wide", in: "10000:0001", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vid, pid, auto, err := ParseUSBPortID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.vid, vid)
			assert.Equal(t, tt.pid, pid)
			assert.Equal(t, tt.auto, auto)
		})
	}
}

func bulkOut(num int) gousb.EndpointDesc {
	return gousb.EndpointDesc{
		Number:       num,
		Direction:    gousb.EndpointDirectionOut,
		TransferType: gousb.TransferTypeBulk,
	}
}

func bulkIn(num int) gousb.EndpointDesc {
	return gousb.EndpointDesc{
		Number:       num,
		Direction:    gousb.EndpointDirectionIn,
		TransferType: gousb.TransferTypeBulk,
	}
}

func printerDesc() *gousb.DeviceDesc {
	return &gousb.DeviceDesc{
		Vendor:  0x0416,
		Product: 0x5011,
		Configs: map[int]gousb.ConfigDesc{
			1: {
				Number: 1,
				Interfaces: []gousb.InterfaceDesc{
					{
						Number: 0,
						AltSettings: []gousb.InterfaceSetting{{
							Number: 0,
							Class:  gousb.ClassHID,
							Endpoints: map[gousb.EndpointAddress]gousb.EndpointDesc{
								0x03: bulkOut(3),
							},
						}},
					},
					{
						Number: 1,
						AltSettings: []gousb.InterfaceSetting{{
							Number: 1,
							Class:  gousb.ClassPrinter,
							Endpoints: map[gousb.EndpointAddress]gousb.EndpointDesc{
								0x82: bulkIn(2),
								0x02: bulkOut(2),
								0x01: bulkOut(1),
							},
						}},
					},
				},
			},
		},
	}
}

func TestIsPrinterDesc(t *testing.T) {
	assert.True(t, isPrinterDesc(printerDesc()))
	assert.False(t, isPrinterDesc(nil))
	assert.False(t, isPrinterDesc(&gousb.DeviceDesc{
		Configs: map[int]gousb.ConfigDesc{
			1: {Interfaces: []gousb.InterfaceDesc{{
				AltSettings: []gousb.InterfaceSetting{{Class: gousb.ClassHID}},
			}}},
		},
	}))
}

func TestFindPrinterEndpointPrefersPrinterClass(t *testing.T) {
	ref, ok := findPrinterEndpoint(printerDesc(), 1)
	require.True(t, ok)
	assert.Equal(t, endpointRef{iface: 1, alt: 0, endpoint: 1}, ref)
}

func TestFindPrinterEndpointFallsBackToVendorInterface(t *testing.T) {
	desc := &gousb.DeviceDesc{
		Configs: map[int]gousb.ConfigDesc{
			1: {Interfaces: []gousb.InterfaceDesc{{
				Number: 0,
				AltSettings: []gousb.InterfaceSetting{{
					Class: gousb.Class(0xff),
					Endpoints: map[gousb.EndpointAddress]gousb.EndpointDesc{
						0x81: bulkIn(1),
						0x02: bulkOut(2),
					},
				}},
			}}},
		},
	}

	ref, ok := findPrinterEndpoint(desc, 1)
	require.True(t, ok)
	assert.Equal(t, endpointRef{iface: 0, alt: 0, endpoint: 2}, ref)
}

func TestFindPrinterEndpointMissing(t *testing.T) {
	_, ok := findPrinterEndpoint(printerDesc(), 2)
	assert.False(t, ok, "unknown configuration")

	_, ok = findPrinterEndpoint(nil, 1)
	assert.False(t, ok)

	desc := &gousb.DeviceDesc{
		Configs: map[int]gousb.ConfigDesc{
			1: {Interfaces: []gousb.InterfaceDesc{{
				AltSettings: []gousb.InterfaceSetting{{
					Class: gousb.ClassPrinter,
					Endpoints: map[gousb.EndpointAddress]gousb.EndpointDesc{
						0x81: bulkIn(1),
					},
				}},
			}}},
		},
	}
	_, ok = findPrinterEndpoint(desc, 1)
	assert.False(t, ok, "printer without bulk OUT")
}

func TestIsPrinterDescKnownVendor(t *testing.T) {
	vendorClass := &gousb.DeviceDesc{
		Vendor:  0x04B8,
		Product: 0x0202,
		Configs: map[int]gousb.ConfigDesc{
			1: {Interfaces: []gousb.InterfaceDesc{{
				AltSettings: []gousb.InterfaceSetting{{Class: gousb.Class(0xff)}},
			}}},
		},
	}
	assert.True(t, isPrinterDesc(vendorClass))

	vendorClass.Vendor = 0x1234
	assert.False(t, isPrinterDesc(vendorClass))

	classOnly := printerDesc()
	classOnly.Vendor = 0x1234
	assert.True(t, isPrinterDesc(classOnly))
}

func TestLookupUSBPrinter(t *testing.T) {
	vendor, model, ok := LookupUSBPrinter(0x04B8, 0x0203)
	assert.True(t, ok)
	assert.Equal(t, "Seiko Epson Corporation", vendor)
	assert.Equal(t, "TM-T88V", model)

	vendor, model, ok = LookupUSBPrinter(0x0519, 0x7777)
	assert.True(t, ok)
	assert.Equal(t, "Star Micronics Co., Ltd.", vendor)
	assert.Empty(t, model)

	_, _, ok = LookupUSBPrinter(0x1234, 0x0001)
	assert.False(t, ok)
}

func TestDescribeUSBPrinter(t *testing.T) {
	desc := printerDesc()
	desc.Bus = 1
	desc.Address = 7

	info := describeUSBPrinter(desc)
	assert.Equal(t, "0416:5011", info.PortID)
	assert.Equal(t, "POS58", info.Model)
	assert.Equal(t, 7, info.Addr)

	vid, pid, _, err := ParseUSBPortID(info.PortID)
	require.NoError(t, err)
	assert.Equal(t, desc.Vendor, vid)
	assert.Equal(t, desc.Product, pid)
}
