package template

import "sync"

// Future is the eventual result of an asynchronous render. It settles
// exactly once; Wait may be called from any number of goroutines.
type Future struct {
	once sync.Once
	done chan struct{}
	val  string
	err  error
}

func newFuture() *Future { return &Future{done: make(chan struct{})} }

func (f *Future) settle(val string, err error) {
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
	})
}

// Wait blocks until the render completes and returns its result.
func (f *Future) Wait() (string, error) {
	<-f.done
	return f.val, f.err
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// DeferredValue is a Value whose concrete result becomes available
// later. Evaluating a {% yield %} expression to a DeferredValue
// suspends the render until Resolve or Reject is called. A deferred
// settles exactly once; later calls are ignored.
type DeferredValue struct {
	once sync.Once
	done chan struct{}
	val  Value
	err  error
}

// NewDeferred returns an unsettled DeferredValue.
func NewDeferred() *DeferredValue {
	return &DeferredValue{done: make(chan struct{})}
}

// Resolve settles the deferred with a value.
func (d *DeferredValue) Resolve(v Value) {
	d.once.Do(func() {
		d.val = v
		close(d.done)
	})
}

// Reject settles the deferred with an error.
func (d *DeferredValue) Reject(err error) {
	d.once.Do(func() {
		d.err = err
		close(d.done)
	})
}

// Await blocks until the deferred settles.
func (d *DeferredValue) Await() (Value, error) {
	<-d.done
	if d.err != nil {
		return nil, d.err
	}
	if d.val == nil {
		return NoneValue{}, nil
	}
	return d.val, nil
}

func (d *DeferredValue) String() string {
	select {
	case <-d.done:
		if d.err != nil || d.val == nil {
			return ""
		}
		return d.val.String()
	default:
		return "<deferred>"
	}
}

func (d *DeferredValue) Truth() bool {
	select {
	case <-d.done:
		return d.err == nil && d.val != nil && d.val.Truth()
	default:
		return true
	}
}
