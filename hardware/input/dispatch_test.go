package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/temoto/envnode/log2"
)

func TestDispatchDoubleSubscribe(t *testing.T) {
	log := log2.NewTest(t, log2.LDebug)
	dstop := make(chan struct{})
	d := NewDispatch(log, dstop)

	go func() {
		sub1stop := make(chan struct{})
		d.SubscribeChan("name", sub1stop)
		close(sub1stop)
		sub2stop := make(chan struct{})
		d.SubscribeChan("name", sub2stop)
		close(dstop)
	}()

	d.Run(nil)
}

func TestDispatchFanout(t *testing.T) {
	log := log2.NewTest(t, log2.LDebug)
	dstop := make(chan struct{})
	d := NewDispatch(log, dstop)

	substop := make(chan struct{})
	funed := make(chan Event, 1)
	d.SubscribeFunc("fun", func(e Event) { funed <- e }, substop)
	ch := d.SubscribeChan("chan", substop)

	go d.Run(nil)
	press := Event{Source: DevInputEventTag, Key: 148, Up: false}
	d.Emit(press)

	assert.Equal(t, press, <-ch)
	assert.Equal(t, press, <-funed)
	close(dstop)
}
