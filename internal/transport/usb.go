// internal/transport/usb.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"escpos-printer/pkg/printer"
)

// USBPortAuto selects the first printer-class or known-vendor device on the bus
const USBPortAuto = "auto"

// USBDialer opens USB printers with gousb. PortID is "vid:pid" in hex
// (0x prefix optional) or "auto".
type USBDialer struct {
	logger *zap.Logger
}

// NewUSBDialer creates a USB dialer
func NewUSBDialer(logger *zap.Logger) *USBDialer {
	return &USBDialer{
		logger: logger.With(zap.String("protocol", "usb")),
	}
}

// Dial claims the printer interface and its bulk OUT endpoint
func (d *USBDialer) Dial(ctx context.Context, cfg printer.Config) (printer.Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vendorID, productID, auto, err := ParseUSBPortID(cfg.PortID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", printer.ErrInvalidArgument, err)
	}

	logger := d.logger.With(zap.String("port", cfg.PortID))
	logger.Info("Opening USB connection", zap.Bool("auto", auto))

	usbCtx := gousb.NewContext()

	device, err := d.findAndOpenDevice(usbCtx, vendorID, productID, auto)
	if err != nil {
		usbCtx.Close()
		return nil, usbError("failed to find USB device", err)
	}

	if err := device.SetAutoDetach(true); err != nil {
		logger.Warn("Kernel driver auto-detach not supported", zap.Error(err))
	}

	cfgNum, err := device.ActiveConfigNum()
	if err != nil {
		device.Close()
		usbCtx.Close()
		return nil, usbError("failed to read active configuration", err)
	}

	ep, ok := findPrinterEndpoint(device.Desc, cfgNum)
	if !ok {
		device.Close()
		usbCtx.Close()
		return nil, fmt.Errorf("no bulk OUT endpoint on USB device %s", device.Desc.String())
	}

	config, err := device.Config(cfgNum)
	if err != nil {
		device.Close()
		usbCtx.Close()
		return nil, usbError("failed to select configuration", err)
	}

	intf, err := config.Interface(ep.iface, ep.alt)
	if err != nil {
		config.Close()
		device.Close()
		usbCtx.Close()
		return nil, usbError("failed to claim interface", err)
	}

	outEndpt, err := intf.OutEndpoint(ep.endpoint)
	if err != nil {
		intf.Close()
		config.Close()
		device.Close()
		usbCtx.Close()
		return nil, usbError("failed to get out endpoint", err)
	}

	vendorName, modelName, _ := LookupUSBPrinter(device.Desc.Vendor, device.Desc.Product)
	logger.Info("USB connection opened successfully",
		zap.String("vendor_id", device.Desc.Vendor.String()),
		zap.String("product_id", device.Desc.Product.String()),
		zap.String("vendor", vendorName),
		zap.String("model", modelName),
		zap.Int("interface", ep.iface),
		zap.Int("endpoint", ep.endpoint),
	)

	return &usbTransport{
		usbCtx:   usbCtx,
		device:   device,
		config:   config,
		intf:     intf,
		outEndpt: outEndpt,
		logger:   logger,
	}, nil
}

func usbError(msg string, err error) error {
	if errors.Is(err, gousb.ErrorBusy) || errors.Is(err, gousb.ErrorNoMem) {
		return fmt.Errorf("%w: %s: %w", printer.ErrResourceExhausted, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// findAndOpenDevice opens the device matching vid:pid, or the first
// printer in auto mode. Extra matches are closed.
func (d *USBDialer) findAndOpenDevice(usbCtx *gousb.Context, vendorID, productID gousb.ID, auto bool) (*gousb.Device, error) {
	devices, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if auto {
			return isPrinterDesc(desc)
		}
		return desc.Vendor == vendorID && desc.Product == productID
	})
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}

	if len(devices) == 0 {
		if auto {
			return nil, errors.New("cannot find printer")
		}
		return nil, fmt.Errorf("USB device not found (VID: %s, PID: %s)", vendorID, productID)
	}

	if len(devices) > 1 {
		for i := 1; i < len(devices); i++ {
			devices[i].Close()
		}
		d.logger.Warn("Multiple matching USB devices found, using first one",
			zap.Int("count", len(devices)),
		)
	}

	return devices[0], nil
}

// ParseUSBPortID parses "vid:pid" (hex, optional 0x prefix) or "auto"
func ParseUSBPortID(portID string) (vendorID, productID gousb.ID, auto bool, err error) {
	portID = strings.TrimSpace(portID)
	if strings.EqualFold(portID, USBPortAuto) {
		return 0, 0, true, nil
	}

	vid, pid, found := strings.Cut(portID, ":")
	if !found {
		return 0, 0, false, fmt.Errorf("invalid USB port %q: expected vid:pid or %s", portID, USBPortAuto)
	}

	vendorID, err = parseHexID(vid)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid vendor ID: %w", err)
	}
	productID, err = parseHexID(pid)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid product ID: %w", err)
	}
	return vendorID, productID, false, nil
}

// parseHexID parses hex ID string (0x1234 or 1234)
func parseHexID(hexStr string) (gousb.ID, error) {
	hexStr = strings.TrimSpace(hexStr)
	if len(hexStr) > 2 && (hexStr[:2] == "0x" || hexStr[:2] == "0X") {
		hexStr = hexStr[2:]
	}

	id, err := strconv.ParseUint(hexStr, 16, 16)
	if err != nil {
		return 0, err
	}
	return gousb.ID(id), nil
}

// isPrinterDesc reports whether desc comes from a known printer vendor or
// has a printer-class interface
func isPrinterDesc(desc *gousb.DeviceDesc) bool {
	if desc == nil {
		return false
	}
	if isKnownPrinterVendor(desc.Vendor) {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}

type endpointRef struct {
	iface    int
	alt      int
	endpoint int
}

// findPrinterEndpoint picks the bulk OUT endpoint to print on. Printer-class
// interfaces win; otherwise the first interface with a bulk OUT endpoint is
// used, which covers vendor-specific printers.
func findPrinterEndpoint(desc *gousb.DeviceDesc, cfgNum int) (endpointRef, bool) {
	if desc == nil {
		return endpointRef{}, false
	}
	cfg, ok := desc.Configs[cfgNum]
	if !ok {
		return endpointRef{}, false
	}

	var fallback *endpointRef
	for _, iface := range cfg.Interfaces {
		for _, alt := range iface.AltSettings {
			num, ok := bulkOutEndpoint(alt)
			if !ok {
				continue
			}
			ref := endpointRef{iface: iface.Number, alt: alt.Alternate, endpoint: num}
			if alt.Class == gousb.ClassPrinter {
				return ref, true
			}
			if fallback == nil {
				fallback = &ref
			}
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return endpointRef{}, false
}

// bulkOutEndpoint returns the lowest-numbered bulk OUT endpoint of setting
func bulkOutEndpoint(setting gousb.InterfaceSetting) (int, bool) {
	best, found := 0, false
	for _, ep := range setting.Endpoints {
		if ep.Direction != gousb.EndpointDirectionOut || ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if !found || ep.Number < best {
			best, found = ep.Number, true
		}
	}
	return best, found
}

type usbTransport struct {
	usbCtx   *gousb.Context
	device   *gousb.Device
	config   *gousb.Config
	intf     *gousb.Interface
	outEndpt *gousb.OutEndpoint
	logger   *zap.Logger
	mutex    sync.Mutex
	closed   bool
}

// Write performs a synchronous bulk transfer
func (ut *usbTransport) Write(ctx context.Context, p []byte) (int, error) {
	ut.mutex.Lock()
	defer ut.mutex.Unlock()

	if ut.closed {
		return 0, fmt.Errorf("USB connection not open")
	}

	n, err := ut.outEndpt.WriteContext(ctx, p)
	if err != nil {
		ut.logger.Error("USB write failed", zap.Error(err))
		return n, fmt.Errorf("failed to write to USB device: %w", err)
	}

	ut.logger.Debug("USB write completed", zap.Int("bytes", n))
	return n, nil
}

// Drain has nothing to wait for since bulk writes complete synchronously
func (ut *usbTransport) Drain(ctx context.Context) error {
	ut.mutex.Lock()
	defer ut.mutex.Unlock()

	if ut.closed {
		return fmt.Errorf("USB connection not open")
	}
	return ctx.Err()
}

func (ut *usbTransport) Close() error {
	ut.mutex.Lock()
	defer ut.mutex.Unlock()

	if ut.closed {
		return nil
	}
	ut.closed = true

	ut.intf.Close()
	var errs []error
	if err := ut.config.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to release configuration: %w", err))
	}
	if err := ut.device.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close USB device: %w", err))
	}
	if err := ut.usbCtx.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close USB context: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		ut.logger.Error("Failed to close USB connection", zap.Error(err))
		return err
	}

	ut.logger.Info("USB connection closed successfully")
	return nil
}
