package services

import (
	"context"
	"log"
	"sync"
	"time"

	"calTrackAPI/internal/notification"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// NotificationDispatcher drains a bounded in-memory queue with a small
// worker pool. Delivery is decoupled from the reward path: enqueueing
// never blocks a grant for more than the queue timeout, and a full
// queue drops the push rather than the caller.
type NotificationDispatcher struct {
	service      *NotificationService
	pushProvider PushNotificationProvider
	workers      int
	jobQueue     chan *dispatchJob
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

type dispatchJob struct {
	notification *notification.Notification
	tokens       []notification.DeviceToken
}

func NewNotificationDispatcher(service *NotificationService) *NotificationDispatcher {
	dispatcher := &NotificationDispatcher{
		service:  service,
		workers:  5,
		jobQueue: make(chan *dispatchJob, 100),
		stopChan: make(chan struct{}),
	}

	dispatcher.startWorkers()

	return dispatcher
}

// SetPushProvider injects the real FCM provider from main.go.
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(job *dispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	notif := job.notification

	if d.pushProvider != nil && len(job.tokens) > 0 {
		if err := d.pushProvider.SendPush(ctx, job.tokens, notif.Title, notif.Body, notif.Data); err != nil {
			log.Printf("push failed for user %s: %v", notif.UserID, err)
			d.service.markAsFailed(ctx, notif.ID, err)
			return
		}
	}

	d.service.markAsSent(ctx, notif.ID)
}

// Dispatch queues a notification for delivery.
func (d *NotificationDispatcher) Dispatch(notif *notification.Notification, tokens []notification.DeviceToken) {
	job := &dispatchJob{
		notification: notif,
		tokens:       tokens,
	}

	select {
	case d.jobQueue <- job:
	case <-time.After(5 * time.Second):
		log.Printf("failed to queue notification %s: queue full", notif.ID)
	}
}

// Stop shuts the worker pool down and waits for in-flight jobs.
func (d *NotificationDispatcher) Stop() {
	close(d.stopChan)
	d.wg.Wait()
}
