package shutdown

import (
	"os"
	"sync"
)

// Trigger source names.
const (
	SourceSignal    = "signal"
	SourceMessage   = "message"
	SourceError     = "error"
	SourcePanic     = "panic"
	SourceUnhandled = "unhandled"
	SourceManual    = "manual"
	SourceContext   = "context"
	SourceTask      = "task"
)

// MessageShutdown is the supervisor message that requests a shutdown.
const MessageShutdown = "shutdown"

// Trigger is one request to shut down. Err is nil for plain requests such as
// signals or supervisor messages.
type Trigger struct {
	Source string
	Signal os.Signal
	Err    error
}

// String returns the signal name for signal triggers and the source otherwise.
func (t Trigger) String() string {
	if t.Signal != nil {
		return t.Signal.String()
	}
	if t.Source == "" {
		return SourceManual
	}
	return t.Source
}

// Subscription is the handle returned when a Source is subscribed.
// Closing it stops the source from firing.
type Subscription interface {
	Close() error
}

// Source produces triggers. Subscribe must not block; the source calls fire
// from its own goroutine until the returned Subscription is closed.
type Source interface {
	Subscribe(fire func(Trigger)) (Subscription, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(fire func(Trigger)) (Subscription, error)

// Subscribe calls f.
func (f SourceFunc) Subscribe(fire func(Trigger)) (Subscription, error) {
	return f(fire)
}

// SubscriptionFunc adapts a function to the Subscription interface.
type SubscriptionFunc func() error

// Close calls f.
func (f SubscriptionFunc) Close() error {
	return f()
}

// MessageStream is implemented by supervisor channels that deliver inbound
// messages.
type MessageStream interface {
	Messages() <-chan string
}

// Messages returns a Source that fires when the stream delivers
// MessageShutdown. Other messages are ignored.
func Messages(stream MessageStream) Source {
	return SourceFunc(func(fire func(Trigger)) (Subscription, error) {
		msgs := stream.Messages()
		return watch(func(stop <-chan struct{}) {
			for {
				select {
				case msg, ok := <-msgs:
					if !ok {
						return
					}
					if msg == MessageShutdown {
						fire(Trigger{Source: SourceMessage})
					}
				case <-stop:
					return
				}
			}
		}, nil), nil
	})
}

// Errors returns a Source that fires once per error received on ch. This is
// the fatal-errors channel for code that cannot panic or return.
func Errors(ch <-chan error) Source {
	return SourceFunc(func(fire func(Trigger)) (Subscription, error) {
		return watch(func(stop <-chan struct{}) {
			for {
				select {
				case err, ok := <-ch:
					if !ok {
						return
					}
					if err != nil {
						fire(Trigger{Source: SourceError, Err: err})
					}
				case <-stop:
					return
				}
			}
		}, nil), nil
	})
}

// watch runs loop in a goroutine and returns a Subscription that stops it,
// runs release, and waits for the goroutine to return.
func watch(loop func(stop <-chan struct{}), release func()) Subscription {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		loop(stop)
	}()

	var once sync.Once
	return SubscriptionFunc(func() error {
		once.Do(func() {
			if release != nil {
				release()
			}
			close(stop)
			wg.Wait()
		})
		return nil
	})
}
