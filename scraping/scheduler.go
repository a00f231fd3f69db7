package scraping

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dev.hon.one/routewatch/common"
)

// DefaultScrapeInterval - Pause between cycles if none is configured.
const DefaultScrapeInterval = 30 * time.Second

// State - Scheduler state.
type State int32

// Scheduler states.
const (
	StateIdle State = iota
	StateRunning
)

func (state State) String() string {
	switch state {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	}
	return fmt.Sprintf("State(%d)", int32(state))
}

// CycleResult - Summary of one collection cycle.
type CycleResult struct {
	ID       string
	Start    time.Time
	Duration time.Duration
	Devices  int
	Failures int // Failed device collections, each device has two

	ConnectivityFailed bool
}

// Scheduler - Runs collection cycles over all devices at a fixed interval in the background.
type Scheduler struct {
	collector *Collector
	interval  time.Duration
	workers   int

	mutex       sync.Mutex
	state       State
	stopChannel chan struct{}
	stopping    bool
	doneChannel chan struct{}
}

// NewScheduler - Create an idle scheduler. More than one worker polls devices concurrently.
func NewScheduler(collector *Collector, interval time.Duration, workers int) *Scheduler {
	if interval <= 0 {
		interval = DefaultScrapeInterval
	}
	if workers < 1 {
		workers = 1
	}
	doneChannel := make(chan struct{})
	close(doneChannel)
	return &Scheduler{
		collector:   collector,
		interval:    interval,
		workers:     workers,
		state:       StateIdle,
		doneChannel: doneChannel,
	}
}

// State - Current state.
func (scheduler *Scheduler) State() State {
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()
	return scheduler.state
}

// Start - Start the collection loop in the background. The first cycle starts immediately.
// Returns false if already running (including a loop that is still finishing after Stop).
func (scheduler *Scheduler) Start() bool {
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()
	if scheduler.state == StateRunning {
		return false
	}
	scheduler.state = StateRunning
	scheduler.stopping = false
	scheduler.stopChannel = make(chan struct{})
	scheduler.doneChannel = make(chan struct{})
	go scheduler.loop(scheduler.stopChannel, scheduler.doneChannel)

	log.WithFields(log.Fields{
		"interval": scheduler.interval,
		"workers":  scheduler.workers,
	}).Info("Scheduler started")
	return true
}

// Stop - Ask the loop to exit. An in-flight cycle is allowed to finish, the pause between cycles is not.
// Does not block, see Wait.
func (scheduler *Scheduler) Stop() {
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()
	if scheduler.state != StateRunning || scheduler.stopping {
		return
	}
	scheduler.stopping = true
	close(scheduler.stopChannel)
}

// Wait - Block until the loop has exited. Returns immediately if idle.
func (scheduler *Scheduler) Wait() {
	scheduler.mutex.Lock()
	doneChannel := scheduler.doneChannel
	scheduler.mutex.Unlock()
	<-doneChannel
}

func (scheduler *Scheduler) loop(stopChannel <-chan struct{}, doneChannel chan<- struct{}) {
	defer func() {
		scheduler.mutex.Lock()
		scheduler.state = StateIdle
		scheduler.mutex.Unlock()
		close(doneChannel)
		log.Info("Scheduler stopped")
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-stopChannel:
			return
		case <-timer.C:
		}
		// Both may be ready, stop wins
		select {
		case <-stopChannel:
			return
		default:
		}

		// Not cancellable, cycles always run to completion
		scheduler.RunCycle(context.Background())

		timer.Reset(scheduler.interval)
	}
}

// RunCycle - Collect routing tables and interface statistics for every device, then connectivity.
// Device failures are logged and counted, they never abort the cycle.
func (scheduler *Scheduler) RunCycle(ctx context.Context) CycleResult {
	result := CycleResult{
		ID:    uuid.NewString(),
		Start: time.Now(),
	}
	ctx = WithCycleID(ctx, result.ID)
	deviceIDs := scheduler.collector.DeviceIDs()
	result.Devices = len(deviceIDs)

	log.WithFields(log.Fields{
		"cycle":        result.ID,
		"device_count": result.Devices,
	}).Info("Collection cycle started")

	var failures int64
	var group errgroup.Group
	group.SetLimit(scheduler.workers)
	for _, deviceID := range deviceIDs {
		deviceID := deviceID
		// Never returns an error, a failed device must not affect the others
		group.Go(func() error {
			atomic.AddInt64(&failures, int64(scheduler.collectDevice(ctx, deviceID)))
			return nil
		})
	}
	group.Wait()
	result.Failures = int(atomic.LoadInt64(&failures))

	// Always after all devices
	result.ConnectivityFailed = !scheduler.isolate(ctx, common.NetworkDeviceID, func() error {
		_, err := scheduler.collector.CollectConnectivity(ctx)
		return err
	})

	result.Duration = time.Since(result.Start)
	scheduler.collector.metrics.observeCycle(result)
	log.WithFields(log.Fields{
		"cycle":               result.ID,
		"device_count":        result.Devices,
		"failure_count":       result.Failures,
		"connectivity_failed": result.ConnectivityFailed,
		"duration":            result.Duration,
	}).Info("Collection cycle done")
	return result
}

// Returns the number of failed collections for the device.
func (scheduler *Scheduler) collectDevice(ctx context.Context, deviceID string) int {
	failures := 0
	if !scheduler.isolate(ctx, deviceID, func() error {
		_, err := scheduler.collector.CollectRoutingTable(ctx, deviceID)
		return err
	}) {
		failures++
	}
	if !scheduler.isolate(ctx, deviceID, func() error {
		_, err := scheduler.collector.CollectInterfaceStatistics(ctx, deviceID)
		return err
	}) {
		failures++
	}
	return failures
}

// Run a collection, containing panics. Errors are already logged by the collector.
func (scheduler *Scheduler) isolate(ctx context.Context, deviceID string, collect func() error) (ok bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			log.WithFields(log.Fields{
				"device": deviceID,
				"cycle":  CycleIDFromContext(ctx),
			}).Errorf("Collection panicked: %v", recovered)
			ok = false
		}
	}()
	return collect() == nil
}
