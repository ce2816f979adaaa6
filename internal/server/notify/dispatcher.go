package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/postboard/internal/logging"
)

const DefaultSendTimeout = 5 * time.Second

// Recorder counts dispatch outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	Notification(template, result string)
}

type nopRecorder struct{}

func (nopRecorder) Notification(string, string) {}

// Notifier is what request handlers depend on.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// Dispatcher renders and sends messages in the background. Notify never
// blocks on the sender and never reports failure to the caller.
type Dispatcher struct {
	sender   Sender
	log      logging.Logger
	recorder Recorder
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher returns a Dispatcher sending through sender. A nil recorder
// disables outcome counting.
func NewDispatcher(sender Sender, log logging.Logger, recorder Recorder) *Dispatcher {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Dispatcher{
		sender:   sender,
		log:      log.With("module", "notify"),
		recorder: recorder,
		timeout:  DefaultSendTimeout,
	}
}

// Notify returns immediately. The send runs on a context detached from
// ctx, so a finished request does not cancel it, bounded by the send
// timeout.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) {
	sendCtx := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(sendCtx, msg)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error(ctx, "notification panicked", "template", msg.Template, "panic", r)
			d.recorder.Notification(msg.Template, "failed")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	email, err := Render(msg)
	if err != nil {
		d.log.Warn(ctx, "notification render failed", "template", msg.Template, "error", err)
		d.recorder.Notification(msg.Template, "failed")
		return
	}

	if err := d.sender.Send(ctx, email); err != nil {
		d.log.Warn(ctx, "notification send failed", "template", msg.Template, "to", msg.To, "error", err)
		d.recorder.Notification(msg.Template, "failed")
		return
	}

	d.recorder.Notification(msg.Template, "sent")
}

// Wait blocks until all in-flight notifications have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// WaitContext is Wait bounded by ctx. It reports false if ctx ended first.
func (d *Dispatcher) WaitContext(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
