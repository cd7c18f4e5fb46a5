package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"declutterAPI/internal/docstore"
	"declutterAPI/internal/types/profile"
)

// AlertSink is the one-way push collaborator. Failures are logged and
// dropped; nothing downstream ever depends on a push landing.
type AlertSink interface {
	Alert(ctx context.Context, token, title, body string, data map[string]any) error
}

type alertJob struct {
	userID string
	title  string
	body   string
	data   map[string]any
}

// AlertDispatcher fans alerts out through a small worker pool so callers
// never block on push delivery.
type AlertDispatcher struct {
	store    docstore.Store
	sink     AlertSink
	jobQueue chan alertJob
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewAlertDispatcher(store docstore.Store) *AlertDispatcher {
	d := &AlertDispatcher{
		store:    store,
		jobQueue: make(chan alertJob, 100),
		stopChan: make(chan struct{}),
	}
	for i := 0; i < 4; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// SetSink injects the real push provider from main. Without a sink the
// dispatcher drains jobs and drops them.
func (d *AlertDispatcher) SetSink(sink AlertSink) {
	d.sink = sink
}

// Notify queues one alert for the user. Never blocks the caller for long:
// a full queue drops the alert.
func (d *AlertDispatcher) Notify(userID, title, body string, data map[string]any) {
	select {
	case d.jobQueue <- alertJob{userID: userID, title: title, body: body, data: data}:
	case <-time.After(2 * time.Second):
		log.Printf("AlertDispatcher: queue full, dropping alert for %s", userID)
	}
}

// Stop drains the workers.
func (d *AlertDispatcher) Stop() {
	close(d.stopChan)
	d.wg.Wait()
}

func (d *AlertDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.process(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *AlertDispatcher) process(job alertJob) {
	if d.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var p profile.Profile
	found, err := d.store.Get(ctx, userDoc(job.userID), &p)
	if err != nil {
		if !errors.Is(err, docstore.ErrDisabled) {
			log.Printf("AlertDispatcher: profile load failed for %s: %v", job.userID, err)
		}
		return
	}
	if !found || p.DeviceToken == "" {
		return
	}

	if err := d.sink.Alert(ctx, p.DeviceToken, job.title, job.body, job.data); err != nil {
		log.Printf("AlertDispatcher: push failed for %s: %v", job.userID, err)
	}
}
