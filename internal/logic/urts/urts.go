// Package urts builds command frames for the Somfy URTSii RS-232 interface.
//
// A URTSii accepts one ASCII frame per motion: the two-digit controller
// address, the two-digit channel and a single motion letter, terminated by
// a carriage return. "0105U\r" raises channel 5 of controller 1.
package urts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidAddress = errors.New("invalid shade address")
	ErrInvalidMotion  = errors.New("invalid motion code")
)

// Address limits. The URTSii exposes 16 radio channels per controller.
const (
	MaxPort       = 99
	MaxController = 99
	MaxChannel    = 16
)

// Motion is one of the primitives the interface accepts.
type Motion byte

const (
	None Motion = 0
	Up   Motion = 'U'
	Down Motion = 'D'
	Stop Motion = 'S'
)

func (m Motion) String() string {
	switch m {
	case None:
		return "none"
	case Up:
		return "up"
	case Down:
		return "down"
	case Stop:
		return "stop"
	default:
		return fmt.Sprintf("motion(%q)", byte(m))
	}
}

// Valid reports whether m can be sent on the wire.
func (m Motion) Valid() bool {
	return m == Up || m == Down || m == Stop
}

// Address identifies one shade: serial port index, controller index, channel.
type Address struct {
	Port       int
	Controller int
	Channel    int
}

// ParseAddress decodes "PP_CC_NN" (e.g. "01_01_05").
func ParseAddress(s string) (Address, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 3 {
		return Address{}, fmt.Errorf("%w: %q: want PP_CC_NN", ErrInvalidAddress, s)
	}
	var nums [3]int
	for i, p := range parts {
		if p == "" || len(p) > 2 {
			return Address{}, fmt.Errorf("%w: %q: part %q must be 1-2 digits", ErrInvalidAddress, s, p)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Address{}, fmt.Errorf("%w: %q: part %q is not a number", ErrInvalidAddress, s, p)
		}
		nums[i] = n
	}
	a := Address{Port: nums[0], Controller: nums[1], Channel: nums[2]}
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	return a, nil
}

// Validate checks every part of the address is in range.
func (a Address) Validate() error {
	switch {
	case a.Port < 1 || a.Port > MaxPort:
		return fmt.Errorf("%w: port %d out of range 1-%d", ErrInvalidAddress, a.Port, MaxPort)
	case a.Controller < 1 || a.Controller > MaxController:
		return fmt.Errorf("%w: controller %d out of range 1-%d", ErrInvalidAddress, a.Controller, MaxController)
	case a.Channel < 1 || a.Channel > MaxChannel:
		return fmt.Errorf("%w: channel %d out of range 1-%d", ErrInvalidAddress, a.Channel, MaxChannel)
	}
	return nil
}

// String renders the address as PP_CC_NN.
func (a Address) String() string {
	return fmt.Sprintf("%02d_%02d_%02d", a.Port, a.Controller, a.Channel)
}

// ChannelSuffix is the controller+channel portion with separators stripped.
func (a Address) ChannelSuffix() string {
	return fmt.Sprintf("%02d%02d", a.Controller, a.Channel)
}

// Frame builds the wire frame for motion m on this address.
func (a Address) Frame(m Motion) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMotion, m)
	}
	frame := make([]byte, 0, 6)
	frame = append(frame, a.ChannelSuffix()...)
	frame = append(frame, byte(m), '\r')
	return frame, nil
}

// Encode parses address and returns the frame for motion m.
func Encode(address string, m Motion) ([]byte, error) {
	a, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	return a.Frame(m)
}
