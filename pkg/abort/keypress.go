package abort

import (
	"bufio"
	"io"
	"sync/atomic"
)

// Keypress watches an input stream for an abort key. It triggers on the
// first 'x' or 'X' read, which matches the "press X to abort" hint shown by
// the console monitor.
type Keypress struct {
	triggered atomic.Bool
	done      chan struct{}
}

// WatchKeys starts reading r in the background. The goroutine exits after
// the abort key is seen or r reaches EOF or fails. A terminal in canonical
// mode delivers the key only after Enter.
func WatchKeys(r io.Reader) *Keypress {
	k := &Keypress{done: make(chan struct{})}
	go k.watch(bufio.NewReader(r))
	return k
}

func (k *Keypress) watch(r *bufio.Reader) {
	defer close(k.done)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}
		if b == 'x' || b == 'X' {
			k.triggered.Store(true)
			return
		}
	}
}

// Requested reports whether the abort key was read.
func (k *Keypress) Requested() bool {
	return k.triggered.Load()
}

// Done is closed when the watcher goroutine exits.
func (k *Keypress) Done() <-chan struct{} {
	return k.done
}
