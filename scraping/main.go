package scraping

import (
	"sync"

	"dev.hon.one/routewatch/util"
)

// StartScheduler - Start the scheduler in the background and stop it on shutdown.
// The wait group is released once the last cycle has finished.
func StartScheduler(waitGroup *sync.WaitGroup, shutdown *util.ShutdownChannelDistributor, scheduler *Scheduler) {
	// Setup shutdown signal and waitgroup
	shutdownChannel := make(chan bool, 1)
	if !shutdown.AddListener(shutdownChannel) {
		return
	}
	if !scheduler.Start() {
		return
	}
	waitGroup.Add(1)

	go func() {
		defer waitGroup.Done()
		<-shutdownChannel
		scheduler.Stop()
		scheduler.Wait()
	}()
}
