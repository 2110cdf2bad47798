package ili9341test

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type role int

const (
	roleCS role = iota
	roleDC
	roleRST
)

// Pin is a gpiotest.Pin wired to a Panel: level changes reach the panel.
type Pin struct {
	gpiotest.Pin
	panel *Panel
	role  role
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	if err := p.Pin.Out(l); err != nil {
		return err
	}
	p.panel.edge(p.role, l)
	return nil
}

func (p *Pin) level() gpio.Level {
	p.Lock()
	defer p.Unlock()
	return p.L
}

var _ gpio.PinOut = &Pin{}
