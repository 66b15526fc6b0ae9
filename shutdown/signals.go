package shutdown

import (
	"os"
	"os/signal"
)

// Signals returns a Source that fires on any of sigs. With no arguments it
// uses TerminationSignals. Closing the subscription restores the default
// signal behaviour.
func Signals(sigs ...os.Signal) Source {
	if len(sigs) == 0 {
		sigs = TerminationSignals()
	}
	return SourceFunc(func(fire func(Trigger)) (Subscription, error) {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, sigs...)
		return watch(func(stop <-chan struct{}) {
			for {
				select {
				case sig := <-ch:
					fire(Trigger{Source: SourceSignal, Signal: sig})
				case <-stop:
					return
				}
			}
		}, func() { signal.Stop(ch) }), nil
	})
}

// TerminationSignals returns the platform's termination signal set.
func TerminationSignals() []os.Signal {
	return append([]os.Signal(nil), terminationSignals...)
}
