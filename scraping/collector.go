package scraping

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"dev.hon.one/routewatch/common"
	"dev.hon.one/routewatch/parsing"
)

// DefaultProbeTimeout - Timeout for a reachability probe if none is configured.
const DefaultProbeTimeout = 5 * time.Second

// Inventory - Read access to devices and credentials.
type Inventory interface {
	Get(deviceID string) (common.Device, bool)
	Credential(credentialID string) (common.Credential, bool)
	Devices() map[string]common.Device
}

// SnapshotStore - Append-only snapshot persistence. Must be safe for concurrent use.
type SnapshotStore interface {
	Append(ctx context.Context, snapshot common.Snapshot) error
}

// Collector - Collects, parses and persists state for devices.
type Collector struct {
	inventory    Inventory
	executor     Executor
	prober       Prober
	store        SnapshotStore
	metrics      *Metrics
	probeTimeout time.Duration
	now          func() time.Time
}

// NewCollector - Create a collector. Metrics may be nil.
func NewCollector(inventory Inventory, executor Executor, prober Prober, store SnapshotStore, metrics *Metrics, probeTimeout time.Duration) *Collector {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Collector{
		inventory:    inventory,
		executor:     executor,
		prober:       prober,
		store:        store,
		metrics:      metrics,
		probeTimeout: probeTimeout,
		now:          time.Now,
	}
}

type cycleIDKey struct{}

// WithCycleID - Attach a cycle ID to be recorded on snapshots collected with the context.
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	return context.WithValue(ctx, cycleIDKey{}, cycleID)
}

// CycleIDFromContext - Get the cycle ID attached to the context, if any.
func CycleIDFromContext(ctx context.Context) string {
	cycleID, _ := ctx.Value(cycleIDKey{}).(string)
	return cycleID
}

// DeviceIDs - All device identifiers in enumeration order.
func (collector *Collector) DeviceIDs() []string {
	return sortedDeviceIDs(collector.inventory.Devices())
}

func sortedDeviceIDs(devices map[string]common.Device) []string {
	deviceIDs := make([]string, 0, len(devices))
	for deviceID := range devices {
		deviceIDs = append(deviceIDs, deviceID)
	}
	sort.Strings(deviceIDs)
	return deviceIDs
}

// CollectRoutingTable - Fetch, parse and persist the routing table of a device.
func (collector *Collector) CollectRoutingTable(ctx context.Context, deviceID string) ([]common.RouteEntry, error) {
	return collect(ctx, collector, deviceID, common.SnapshotKindRoutingTable,
		func(dialect parsing.Dialect) string { return dialect.RoutingTableCommand },
		func(dialect parsing.Dialect, output string) []common.RouteEntry {
			if dialect.ParseRoutes == nil {
				return nil
			}
			return dialect.ParseRoutes(output)
		})
}

// CollectInterfaceStatistics - Fetch, parse and persist interface statistics of a device.
func (collector *Collector) CollectInterfaceStatistics(ctx context.Context, deviceID string) ([]common.InterfaceRecord, error) {
	return collect(ctx, collector, deviceID, common.SnapshotKindInterfaces,
		func(dialect parsing.Dialect) string { return dialect.InterfacesCommand },
		func(dialect parsing.Dialect, output string) []common.InterfaceRecord {
			if dialect.ParseInterfaces == nil {
				return parsing.ParseInterfaceStatistics(output)
			}
			return dialect.ParseInterfaces(output)
		})
}

// Runs command, parses and stores. Failures are logged here and returned, never retried.
func collect[T any](ctx context.Context, collector *Collector, deviceID string, kind common.SnapshotKind,
	command func(parsing.Dialect) string, parse func(parsing.Dialect, string) []T) ([]T, error) {
	startTime := collector.now()
	logger := log.WithFields(log.Fields{
		"device":        deviceID,
		"snapshot_kind": kind,
		"cycle":         CycleIDFromContext(ctx),
	})
	logger.Trace("Collecting")

	fail := func(err error) ([]T, error) {
		collector.metrics.observeCollection(kind, collector.now().Sub(startTime), err)
		logger.WithError(err).Warn("Collection failed")
		return nil, err
	}

	device, credential, dialect, err := collector.resolve(deviceID)
	if err != nil {
		return fail(err)
	}
	output, err := collector.executor.Execute(ctx, device, credential, command(dialect))
	if err != nil {
		var transportErr *common.TransportError
		if errors.As(err, &transportErr) {
			transportErr.Device = deviceID
		} else {
			err = &common.TransportError{Device: deviceID, Address: device.Address, Op: "exec", Err: err}
		}
		return fail(err)
	}

	records := parse(dialect, output)
	if records == nil {
		records = []T{}
	}
	snapshot := common.Snapshot{
		Time:     startTime,
		DeviceID: deviceID,
		Kind:     kind,
		CycleID:  CycleIDFromContext(ctx),
		Payload:  records,
	}
	if err := collector.store.Append(ctx, snapshot); err != nil {
		return fail(fmt.Errorf("store snapshot: %w", err))
	}

	duration := collector.now().Sub(startTime)
	collector.metrics.observeCollection(kind, duration, nil)
	logger.WithFields(log.Fields{
		"record_count": len(records),
		"duration":     duration,
	}).Trace("Collection done")
	return records, nil
}

// Look up everything needed to talk to the device. Unknown kinds are rejected before anything is sent.
func (collector *Collector) resolve(deviceID string) (common.Device, common.Credential, parsing.Dialect, error) {
	device, found := collector.inventory.Get(deviceID)
	if !found {
		return device, common.Credential{}, parsing.Dialect{}, fmt.Errorf("%w: %s", common.ErrDeviceNotFound, deviceID)
	}
	dialect, found := parsing.LookupDialect(device.Kind)
	if !found {
		return device, common.Credential{}, dialect, common.NewUnsupportedDeviceKindError(deviceID, device.Kind)
	}
	credential, found := collector.inventory.Credential(device.CredentialID)
	if !found {
		return device, credential, dialect, fmt.Errorf("%w: %s (device %s)", common.ErrCredentialNotFound, device.CredentialID, deviceID)
	}
	return device, credential, dialect, nil
}

// ProbeReachability - Probe the address once. Any failure gives false.
func (collector *Collector) ProbeReachability(ctx context.Context, address string) bool {
	reachable := collector.prober.Probe(ctx, address, collector.probeTimeout)
	collector.metrics.observeProbe(reachable)
	return reachable
}

// CollectConnectivity - Probe every ordered pair of distinct devices and persist the matrix.
// This is n*(n-1) probes, so avoid calling it often for large inventories.
// The matrix is returned even if storing it failed.
func (collector *Collector) CollectConnectivity(ctx context.Context) (*common.ConnectivityMatrix, error) {
	startTime := collector.now()
	logger := log.WithFields(log.Fields{
		"device":        common.NetworkDeviceID,
		"snapshot_kind": common.SnapshotKindConnectivity,
		"cycle":         CycleIDFromContext(ctx),
	})

	devices := collector.inventory.Devices()
	deviceIDs := sortedDeviceIDs(devices)
	matrix := common.NewConnectivityMatrix()
	for _, sourceID := range deviceIDs {
		for _, targetID := range deviceIDs {
			if sourceID == targetID {
				continue
			}
			if err := ctx.Err(); err != nil {
				logger.WithError(err).Warn("Connectivity collection aborted")
				return nil, err
			}
			matrix.Set(sourceID, targetID, collector.ProbeReachability(ctx, devices[targetID].Address))
		}
	}

	snapshot := common.Snapshot{
		Time:     startTime,
		DeviceID: common.NetworkDeviceID,
		Kind:     common.SnapshotKindConnectivity,
		CycleID:  CycleIDFromContext(ctx),
		Payload:  matrix,
	}
	err := collector.store.Append(ctx, snapshot)
	collector.metrics.observeCollection(common.SnapshotKindConnectivity, collector.now().Sub(startTime), err)
	if err != nil {
		logger.WithError(err).Warn("Collection failed")
		return matrix, fmt.Errorf("store snapshot: %w", err)
	}

	logger.WithFields(log.Fields{
		"pair_count": matrix.Len(),
	}).Trace("Collection done")
	return matrix, nil
}
