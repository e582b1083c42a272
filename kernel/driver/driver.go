// Package driver declares the interface every device driver in this kernel
// implements, following gopher-os's device.Driver contract.
package driver

import "sv32kernel/kernel"

// Driver is implemented by every device driver this kernel knows about.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver.
	DriverInit() *kernel.Error
}
