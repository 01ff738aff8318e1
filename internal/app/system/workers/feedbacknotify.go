// internal/app/system/workers/feedbacknotify.go
package workers

import (
	"sync"

	"github.com/dalemusser/tutorhub/internal/app/system/mailer"
	"go.uber.org/zap"
)

// FeedbackNotify is a background worker that emails feedback notifications
// so that a slow SMTP relay never holds up the request that stored the
// feedback.
type FeedbackNotify struct {
	notifier *mailer.FeedbackNotifier
	log      *zap.Logger
	jobs     chan feedbackJob
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type feedbackJob struct {
	data       mailer.FeedbackEmailData
	tutorEmail string
}

// NewFeedbackNotify creates the worker. queueSize bounds how many
// notifications may wait; Enqueue drops beyond that.
func NewFeedbackNotify(notifier *mailer.FeedbackNotifier, logger *zap.Logger, queueSize int) *FeedbackNotify {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &FeedbackNotify{
		notifier: notifier,
		log:      logger,
		jobs:     make(chan feedbackJob, queueSize),
	}
}

// Start begins draining the queue.
func (w *FeedbackNotify) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("feedback notification worker started", zap.Int("queue", cap(w.jobs)))
}

// Stop closes the queue and waits for pending notifications to go out.
// Call it only after the HTTP server has stopped accepting requests.
func (w *FeedbackNotify) Stop() {
	w.stopOnce.Do(func() { close(w.jobs) })
	w.wg.Wait()
	w.log.Info("feedback notification worker stopped")
}

// Enqueue schedules a notification and reports whether it was accepted.
// A nil worker accepts nothing.
func (w *FeedbackNotify) Enqueue(data mailer.FeedbackEmailData, tutorEmail string) bool {
	if w == nil {
		return false
	}
	select {
	case w.jobs <- feedbackJob{data: data, tutorEmail: tutorEmail}:
		return true
	default:
		w.log.Warn("feedback notification queue full; dropping",
			zap.String("student", data.StudentEmail))
		return false
	}
}

func (w *FeedbackNotify) run() {
	defer w.wg.Done()
	for job := range w.jobs {
		sent := w.notifier.NotifyFeedback(job.data, job.tutorEmail)
		w.log.Debug("feedback notification processed", zap.Int("sent", sent))
	}
}
