package device

import (
	"context"

	"go.bug.st/serial/enumerator"
)

// SerialEnumerator queries the OS for attached serial ports via
// go.bug.st/serial. USB metadata (VID/PID, product string) is only
// populated for USB-backed ports. The library exposes no manufacturer
// string, so ports from this source classify on description and
// vendor ID alone; Manufacturer stays empty.
type SerialEnumerator struct{}

func NewSerialEnumerator() *SerialEnumerator {
	return &SerialEnumerator{}
}

func (SerialEnumerator) Ports(_ context.Context) ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]Port, 0, len(details))
	for _, d := range details {
		p := Port{
			Name:        d.Name,
			Description: d.Product,
		}
		if d.IsUSB {
			p.VID = d.VID
			p.PID = d.PID
		}
		ports = append(ports, p)
	}
	return ports, nil
}
