// pkg/escpos/names.go
package escpos

import (
	"fmt"
	"strings"
)

// ParseJustification maps "left", "center" (or "centre") and "right" to a
// justification. Empty means left.
func ParseJustification(s string) (Justification, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left":
		return JustifyLeft, nil
	case "center", "centre":
		return JustifyCenter, nil
	case "right":
		return JustifyRight, nil
	default:
		return JustifyLeft, fmt.Errorf("unknown justification %q", s)
	}
}

// ParseCutMode maps "full" and "partial" to a cut mode. Empty means full.
func ParseCutMode(s string) (CutMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return CutFull, nil
	case "partial":
		return CutPartial, nil
	default:
		return CutFull, fmt.Errorf("unknown cut mode %q", s)
	}
}

// ParseDrawerPin maps connector pin numbers 2 and 5. Zero means pin 2.
func ParseDrawerPin(pin int) (DrawerPin, error) {
	switch pin {
	case 0, 2:
		return DrawerPin2, nil
	case 5:
		return DrawerPin5, nil
	default:
		return DrawerPin2, fmt.Errorf("unknown drawer pin %d", pin)
	}
}
