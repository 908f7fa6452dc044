//go:build !wokwi || !cgo

package chipapi

func openHostOs() (Host, error) {
	return nil, ErrorNoHost
}
