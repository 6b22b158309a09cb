//go:build linux

package serial

import (
	"strings"

	"github.com/hedhyw/Go-Serial-Detector/pkg/v1/serialdet"
)

// FindBoardPortName returns the path of the first serial device whose description contains the
// given text, ignoring case.
func FindBoardPortName(match string) (string, error) {
	devices, err := serialdet.List()
	if err != nil {
		return "", err
	}

	match = strings.ToLower(match)
	for _, device := range devices {
		description := strings.ToLower(device.Description())
		if strings.Contains(description, match) {
			return device.Path(), nil
		}
	}

	return "", ErrNoBoardFound
}
