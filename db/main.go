package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	log "github.com/sirupsen/logrus"

	"dev.hon.one/routewatch/common"
	"dev.hon.one/routewatch/util"
)

// SnapshotMeasurement - InfluxDB measurement for snapshots.
const SnapshotMeasurement = "snapshot"

const healthCheckInterval = 1 * time.Second

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxStore - Snapshot store writing one point per snapshot to InfluxDB.
type InfluxStore struct {
	url    string
	org    string
	bucket string
	client influxdb2.Client

	mutex  sync.RWMutex
	writer pointWriter
}

// NewInfluxStore - Create a store. Nothing is written until it has been started and the DB is up.
func NewInfluxStore(url string, token string, org string, bucket string) *InfluxStore {
	return &InfluxStore{
		url:    url,
		org:    org,
		bucket: bucket,
		client: influxdb2.NewClient(url, token),
	}
}

// Start - Wait for the DB in the background, then accept writes until shutdown.
func (store *InfluxStore) Start(waitGroup *sync.WaitGroup, shutdown *util.ShutdownChannelDistributor) {
	// Setup shutdown signal and waitgroup
	shutdownChannel := make(chan bool, 1)
	if !shutdown.AddListener(shutdownChannel) {
		return
	}
	waitGroup.Add(1)

	go func() {
		defer waitGroup.Done()
		defer log.Info("DB client stopped")
		defer store.close()

		// Wait for DB connection (true) to come up or for shutdown signal (false)
		if !store.waitForDBUp(shutdownChannel) {
			return
		}

		store.mutex.Lock()
		store.writer = store.client.WriteAPIBlocking(store.org, store.bucket)
		store.mutex.Unlock()
		log.Infof("DB client started: %v", store.url)

		<-shutdownChannel
	}()
}

func (store *InfluxStore) close() {
	store.mutex.Lock()
	store.writer = nil
	store.mutex.Unlock()
	store.client.Close()
}

func (store *InfluxStore) waitForDBUp(shutdownChannel <-chan bool) bool {
	checkHealth := func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := store.client.Health(ctx)
		if err != nil {
			log.WithError(err).Trace("Database connection error")
			return false
		}
		return true
	}
	if checkHealth() {
		return true
	}
	log.Info("Waiting for database")
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if checkHealth() {
				return true
			}
		case <-shutdownChannel:
			return false
		}
	}
}

// Append - Write a snapshot. Fails with common.ErrStoreUnavailable if the DB isn't up (yet).
func (store *InfluxStore) Append(ctx context.Context, snapshot common.Snapshot) error {
	// Held for the whole write, close waits for in-flight writes
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	if store.writer == nil {
		return common.ErrStoreUnavailable
	}

	point, err := snapshotPoint(snapshot)
	if err != nil {
		return err
	}
	if err := store.writer.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("write snapshot point: %w", err)
	}

	log.WithFields(log.Fields{
		"device":        snapshot.DeviceID,
		"snapshot_kind": snapshot.Kind,
		"time":          snapshot.Time,
	}).Trace("Stored snapshot")
	return nil
}

func snapshotPoint(snapshot common.Snapshot) (*write.Point, error) {
	payload, err := json.Marshal(snapshot.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %v payload: %w", snapshot.Kind, err)
	}

	point := influxdb2.NewPointWithMeasurement(SnapshotMeasurement).
		AddTag("device", snapshot.DeviceID).
		AddTag("kind", string(snapshot.Kind)).
		AddField("payload", string(payload)).
		AddField("record_count", recordCount(snapshot.Payload)).
		SetTime(snapshot.Time)
	if snapshot.CycleID != "" {
		point.AddField("cycle", snapshot.CycleID)
	}
	return point, nil
}

func recordCount(payload interface{}) int {
	switch records := payload.(type) {
	case []common.RouteEntry:
		return len(records)
	case []common.InterfaceRecord:
		return len(records)
	case *common.ConnectivityMatrix:
		return records.Len()
	}
	return 0
}
