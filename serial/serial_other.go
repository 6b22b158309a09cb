//go:build !linux

package serial

func FindBoardPortName(match string) (string, error) {
	// no-op for other OSes
	return "", ErrNoBoardFound
}
