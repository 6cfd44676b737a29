package command

import "sync"

// Event is one recorded Command transition.
type Event struct {
	Command *Command
	State   State
	Reason  string
}

// ChannelObserver forwards transitions to a listener goroutine through a
// channel. Transitions are buffered in an unbounded mailbox, so the queue's
// worker never waits for the listener to catch up.
//
// Events are delivered in the order they were observed. Close stops delivery;
// events not yet received are dropped.
type ChannelObserver struct {
	mu      sync.Mutex
	mailbox []Event
	signal  chan struct{}
	done    chan struct{}
	events  chan Event
	once    sync.Once
	wg      sync.WaitGroup
}

// NewChannelObserver starts the delivery goroutine.
func NewChannelObserver() *ChannelObserver {
	o := &ChannelObserver{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		events: make(chan Event),
	}
	o.wg.Add(1)
	go o.pump()
	return o
}

// Events returns the delivery channel. It is closed after Close.
func (o *ChannelObserver) Events() <-chan Event {
	return o.events
}

// Close stops delivery and waits for the delivery goroutine to exit.
func (o *ChannelObserver) Close() {
	o.once.Do(func() {
		close(o.done)
	})
	o.wg.Wait()
}

func (o *ChannelObserver) Waiting(c *Command) { o.push(c, StateQueued) }
func (o *ChannelObserver) Busy(c *Command)    { o.push(c, StateBusy) }
func (o *ChannelObserver) Success(c *Command) { o.push(c, StateSuccess) }
func (o *ChannelObserver) Abort(c *Command)   { o.push(c, StateAborted) }
func (o *ChannelObserver) Fail(c *Command)    { o.push(c, StateFailed) }

func (o *ChannelObserver) push(c *Command, s State) {
	ev := Event{Command: c, State: s}
	if s == StateFailed {
		ev.Reason = c.Reason()
	}

	o.mu.Lock()
	o.mailbox = append(o.mailbox, ev)
	o.mu.Unlock()

	select {
	case o.signal <- struct{}{}:
	default:
	}
}

func (o *ChannelObserver) pump() {
	defer o.wg.Done()
	defer close(o.events)

	for {
		o.mu.Lock()
		batch := o.mailbox
		o.mailbox = nil
		o.mu.Unlock()

		for _, ev := range batch {
			select {
			case o.events <- ev:
			case <-o.done:
				return
			}
		}

		select {
		case <-o.signal:
		case <-o.done:
			return
		}
	}
}
