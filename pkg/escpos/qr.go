// pkg/escpos/qr.go
package escpos

import (
	"errors"
	"fmt"
)

// QRErrorCorrection is the QR error-correction level
type QRErrorCorrection byte

const (
	QRLevelL QRErrorCorrection = 0
	QRLevelM QRErrorCorrection = 1
	QRLevelQ QRErrorCorrection = 2
	QRLevelH QRErrorCorrection = 3
)

// QRMaxPayload is the largest payload a model 2 symbol can hold (numeric mode, level L)
const QRMaxPayload = 7089

// ErrInvalidQR is returned for payloads the printer cannot store
var ErrInvalidQR = errors.New("invalid qr payload")

const (
	qrCN        = 0x31 // cn = 49, QR code
	qrFnModel   = 0x41 // function 165
	qrFnSize    = 0x43 // function 167
	qrFnECC     = 0x45 // function 169
	qrFnStore   = 0x50 // function 180
	qrFnPrint   = 0x51 // function 181
	qrModel2    = 0x32
	qrECCBase   = 0x30 // 48 = L ... 51 = H
	qrStoreArgs = 3    // cn fn m
)

// ParseQRErrorCorrection maps "L", "M", "Q", "H" to a level
func ParseQRErrorCorrection(s string) (QRErrorCorrection, error) {
	switch s {
	case "L", "l":
		return QRLevelL, nil
	case "M", "m", "":
		return QRLevelM, nil
	case "Q", "q":
		return QRLevelQ, nil
	case "H", "h":
		return QRLevelH, nil
	default:
		return QRLevelM, fmt.Errorf("unknown qr error correction level %q", s)
	}
}

func qrFrame(params ...byte) []byte {
	n := len(params)
	return command(cmdQR, append([]byte{byte(n % 256), byte(n / 256)}, params...)...)
}

// QRCode returns the GS ( k sequence that selects model 2, sets the module
// size and error correction, stores data and prints the symbol. The module
// size is passed through unchanged; levels above H are clamped.
func QRCode(data []byte, moduleSize uint8, level QRErrorCorrection) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidQR)
	}
	if len(data) > QRMaxPayload {
		return nil, fmt.Errorf("%w: payload is %d bytes, limit %d", ErrInvalidQR, len(data), QRMaxPayload)
	}
	if level > QRLevelH {
		level = QRLevelH
	}

	store := make([]byte, 0, qrStoreArgs+len(data))
	store = append(store, qrCN, qrFnStore, 0x30)
	store = append(store, data...)

	var out []byte
	out = append(out, qrFrame(qrCN, qrFnModel, qrModel2, 0x00)...)
	out = append(out, qrFrame(qrCN, qrFnSize, moduleSize)...)
	out = append(out, qrFrame(qrCN, qrFnECC, qrECCBase+byte(level))...)
	out = append(out, qrFrame(store...)...)
	out = append(out, qrFrame(qrCN, qrFnPrint, 0x30)...)
	return out, nil
}
