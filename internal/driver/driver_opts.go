package driver

import "time"

type DriverOpt func(*Driver)

func WithTickLength(tickLength time.Duration) DriverOpt {
	return func(d *Driver) {
		d.tickLength = tickLength
	}
}

// WithReady holds the first tick until ready is closed.
func WithReady(ready <-chan struct{}) DriverOpt {
	return func(d *Driver) {
		d.ready = ready
	}
}
