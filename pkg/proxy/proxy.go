// Package proxy drains frame.Packet values from one direction's reader and
// writes them to the opposite endpoint, optionally passing each packet
// through a pluggable filter first.
package proxy

import (
	"io"
	"sync/atomic"

	"github.com/aawireless/aawg-bridge/pkg/frame"
)

// Direction identifies which way a Worker carries traffic.
type Direction int

const (
	// PhoneToCar carries frames read from the MD endpoint to the HU endpoint.
	PhoneToCar Direction = iota
	// CarToPhone carries frames read from the HU endpoint to the MD endpoint.
	CarToPhone
)

func (d Direction) String() string {
	if d == PhoneToCar {
		return "phone->car"
	}
	return "car->phone"
}

// Filter is a pluggable MITM transform. It may drop a packet by returning a
// nil Packet and nil error, or fail the worker by returning an error. A
// nil Filter is byte-exact pass-through.
type Filter interface {
	Transform(dir Direction, pkt frame.Packet) (*frame.Packet, error)
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(dir Direction, pkt frame.Packet) (*frame.Packet, error)

func (f FilterFunc) Transform(dir Direction, pkt frame.Packet) (*frame.Packet, error) {
	return f(dir, pkt)
}

// Worker consumes one direction's Packet channel and writes each to dst.
type Worker struct {
	Direction Direction
	Dst       io.Writer
	In        <-chan frame.Packet
	Filter    Filter

	// Control and Replies are the cross-direction control-message bus a
	// MITM filter may use to correlate state between the two workers of a
	// session. Unused by pure pass-through.
	Control chan any
	Replies chan any

	BytesWritten atomic.Uint64
}

// NewWorker builds a Worker with its control-message bus allocated.
func NewWorker(dir Direction, dst io.Writer, in <-chan frame.Packet, filter Filter) *Worker {
	return &Worker{
		Direction: dir,
		Dst:       dst,
		In:        in,
		Filter:    filter,
		Control:   make(chan any, 1),
		Replies:   make(chan any, 1),
	}
}

// Run drains In until it closes (peer EOF) or a write fails.
func (w *Worker) Run() error {
	for pkt := range w.In {
		out := &pkt
		if w.Filter != nil {
			var err error
			out, err = w.Filter.Transform(w.Direction, pkt)
			if err != nil {
				return err
			}
			if out == nil {
				continue
			}
		}

		wire := out.Encode()
		n, err := w.Dst.Write(wire)
		if err != nil {
			return err
		}
		w.BytesWritten.Add(uint64(n))
	}
	return nil
}
