package s1

import (
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
)

type options struct {
	log   *slog.Logger
	delay func(time.Duration)
	cs    gpio.PinOut
}

func newOptions(opts []Option) options {
	o := options{
		log:   slog.New(slog.DiscardHandler),
		delay: time.Sleep,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a Power, Flash or Module.
type Option func(*options)

// WithLogger sets the diagnostic sink. Nothing depends on it being set.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithDelay replaces the busy-wait used between flash transactions.
// The function must wait at least the requested duration.
func WithDelay(f func(time.Duration)) Option {
	return func(o *options) {
		if f != nil {
			o.delay = f
		}
	}
}

// WithChipSelect makes the flash drive its chip select line by hand around
// each transaction, for SPI ports without hardware CS such as the FTDI
// MPSSE engine.
func WithChipSelect(cs gpio.PinOut) Option {
	return func(o *options) { o.cs = cs }
}
