package bridge

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("bridge: transport closed")

// Transport moves messages between the host and one embedded document.
// Send may be called concurrently; Receive is called from a single reader.
type Transport interface {
	Send(ctx context.Context, m Message) error
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// pipeBuffer bounds how far a sender may run ahead of the reader.
const pipeBuffer = 16

// Pipe returns two connected in-memory transports. Closing either end
// closes both.
func Pipe() (Transport, Transport) {
	ab := make(chan Message, pipeBuffer)
	ba := make(chan Message, pipeBuffer)
	done := &pipeDone{ch: make(chan struct{})}
	return &pipeEnd{in: ba, out: ab, done: done}, &pipeEnd{in: ab, out: ba, done: done}
}

type pipeDone struct {
	once sync.Once
	ch   chan struct{}
}

type pipeEnd struct {
	in   <-chan Message
	out  chan<- Message
	done *pipeDone
}

func (p *pipeEnd) Send(ctx context.Context, m Message) error {
	select {
	case <-p.done.ch:
		return ErrClosed
	default:
	}
	select {
	case p.out <- m:
		return nil
	case <-p.done.ch:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Receive(ctx context.Context) (Message, error) {
	select {
	case m := <-p.in:
		return m, nil
	case <-p.done.ch:
		return Message{}, ErrClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.done.once.Do(func() { close(p.done.ch) })
	return nil
}
