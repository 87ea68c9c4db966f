package observability

import "context"

// Discard drops every event.
var Discard Observer = ObserverFunc(func(context.Context, Event) {})

// Fanout returns an Observer that delivers each event to every non-nil
// observer in argument order. A single observer is returned unwrapped.
func Fanout(observers ...Observer) Observer {
	var targets fanout
	for _, o := range observers {
		if o != nil {
			targets = append(targets, o)
		}
	}
	switch len(targets) {
	case 0:
		return Discard
	case 1:
		return targets[0]
	}
	return targets
}

type fanout []Observer

func (f fanout) OnEvent(ctx context.Context, event Event) {
	for _, o := range f {
		o.OnEvent(ctx, event)
	}
}

// AtLeast forwards only events at floor or more severe. The chat
// activity footer uses it to hide verbose probe and translation chatter.
func AtLeast(floor Level, o Observer) Observer {
	return ObserverFunc(func(ctx context.Context, event Event) {
		if event.Level >= floor {
			o.OnEvent(ctx, event)
		}
	})
}
