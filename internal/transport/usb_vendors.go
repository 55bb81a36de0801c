// internal/transport/usb_vendors.go
package transport

import (
	"fmt"
	"sort"

	"github.com/google/gousb"
)

// USBVendor describes a maker of ESC/POS printers. Many of them expose a
// vendor-specific interface instead of the printer class, so auto mode
// also accepts their vendor ID.
type USBVendor struct {
	Name     string
	products map[gousb.ID]string
}

// USBPrinterInfo is one printer found on the bus
type USBPrinterInfo struct {
	PortID string `json:"port_id"`
	Vendor string `json:"vendor,omitempty"`
	Model  string `json:"model,omitempty"`
	Bus    int    `json:"bus"`
	Addr   int    `json:"address"`
}

var knownVendors = map[gousb.ID]*USBVendor{
	0x04B8: {
		Name: "Seiko Epson Corporation",
		products: map[gousb.ID]string{
			0x0202: "TM-T88IV",
			0x0203: "TM-T88V",
			0x0214: "TM-T88VI",
			0x0215: "TM-T20III",
			0x0216: "TM-T82III",
			0x0217: "TM-M30",
		},
	},
	0x0519: {
		Name: "Star Micronics Co., Ltd.",
		products: map[gousb.ID]string{
			0x0001: "TSP143III",
			0x0002: "TSP143IIIU",
			0x0003: "TSP654II",
		},
	},
	0x1CBE: {
		Name: "Citizen Systems Japan Co., Ltd.",
		products: map[gousb.ID]string{
			0x0001: "CT-S310II",
			0x0002: "CT-S4000",
		},
	},
	0x1504: {
		Name: "BIXOLON Co., Ltd.",
		products: map[gousb.ID]string{
			0x0006: "SRP-330II",
			0x0007: "SRP-350III",
		},
	},
	// Generic 58mm panel printers
	0x0416: {
		Name: "Winbond Electronics Corp.",
		products: map[gousb.ID]string{
			0x5011: "POS58",
		},
	},
	0x0FE6: {
		Name: "ICS Advent",
		products: map[gousb.ID]string{
			0x811E: "Thermal printer",
		},
	},
}

// LookupUSBPrinter returns vendor and model names for vid:pid. The model is
// empty for unknown products of a known vendor.
func LookupUSBPrinter(vendorID, productID gousb.ID) (vendor, model string, ok bool) {
	v, exists := knownVendors[vendorID]
	if !exists {
		return "", "", false
	}
	return v.Name, v.products[productID], true
}

func isKnownPrinterVendor(vendorID gousb.ID) bool {
	_, exists := knownVendors[vendorID]
	return exists
}

// ListUSBPrinters enumerates printer-class devices and devices of known
// printer vendors without opening them
func ListUSBPrinters() ([]USBPrinterInfo, error) {
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	var printers []USBPrinterInfo
	_, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if isPrinterDesc(desc) {
			printers = append(printers, describeUSBPrinter(desc))
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}

	sort.Slice(printers, func(i, j int) bool {
		if printers[i].Bus != printers[j].Bus {
			return printers[i].Bus < printers[j].Bus
		}
		return printers[i].Addr < printers[j].Addr
	})
	return printers, nil
}

func describeUSBPrinter(desc *gousb.DeviceDesc) USBPrinterInfo {
	info := USBPrinterInfo{
		PortID: fmt.Sprintf("%s:%s", desc.Vendor, desc.Product),
		Bus:    desc.Bus,
		Addr:   desc.Address,
	}
	info.Vendor, info.Model, _ = LookupUSBPrinter(desc.Vendor, desc.Product)
	return info
}
