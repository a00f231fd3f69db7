package scraping

import (
	"context"
	"errors"
	"sync"
	"time"

	"dev.hon.one/routewatch/common"
)

var errUnreachable = errors.New("dial tcp: connect: no route to host")

type executedCommand struct {
	Address string
	Command string
}

type fakeExecutor struct {
	mutex    sync.Mutex
	outputs  map[string]string // By command
	failures map[string]error  // By address
	panics   map[string]bool   // By address
	before   func(address string, command string)
	executed []executedCommand
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		outputs: map[string]string{
			"show ip route":   "C    192.168.1.0/24 is directly connected, FastEthernet0/0\nS    10.0.0.0/8 [1/0] via 192.168.1.254\n",
			"ip route show":   "default via 10.0.0.1 dev eth0\n10.0.0.0/24 dev eth0 proto kernel scope link\n",
			"show interfaces": "FastEthernet0/0 is up, line protocol is up\n  5000 packets input, 123456 bytes\n  3000 packets output, 98765 bytes\nSerial0/1 is down, line protocol is down\n",
		},
		failures: make(map[string]error),
		panics:   make(map[string]bool),
	}
}

func (executor *fakeExecutor) Execute(ctx context.Context, device common.Device, credential common.Credential, command string) (string, error) {
	if executor.before != nil {
		executor.before(device.Address, command)
	}
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	executor.executed = append(executor.executed, executedCommand{Address: device.Address, Command: command})
	if executor.panics[device.Address] {
		panic("executor exploded")
	}
	if err := executor.failures[device.Address]; err != nil {
		return "", err
	}
	return executor.outputs[command], nil
}

func (executor *fakeExecutor) commands() []executedCommand {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	return append([]executedCommand(nil), executor.executed...)
}

type fakeProber struct {
	mutex       sync.Mutex
	unreachable map[string]bool
	probed      []string
}

func (prober *fakeProber) Probe(ctx context.Context, address string, timeout time.Duration) bool {
	prober.mutex.Lock()
	defer prober.mutex.Unlock()
	prober.probed = append(prober.probed, address)
	return !prober.unreachable[address]
}

type memoryStore struct {
	mutex     sync.Mutex
	snapshots []common.Snapshot
	err       error
}

func (store *memoryStore) Append(ctx context.Context, snapshot common.Snapshot) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if store.err != nil {
		return store.err
	}
	store.snapshots = append(store.snapshots, snapshot)
	return nil
}

func (store *memoryStore) all() []common.Snapshot {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return append([]common.Snapshot(nil), store.snapshots...)
}

func (store *memoryStore) byKind(kind common.SnapshotKind) []common.Snapshot {
	var snapshots []common.Snapshot
	for _, snapshot := range store.all() {
		if snapshot.Kind == kind {
			snapshots = append(snapshots, snapshot)
		}
	}
	return snapshots
}

func (store *memoryStore) devices(kind common.SnapshotKind) map[string]int {
	devices := make(map[string]int)
	for _, snapshot := range store.byKind(kind) {
		devices[snapshot.DeviceID]++
	}
	return devices
}

func testInventory(devices map[string]common.Device) *common.Inventory {
	inventory, err := common.NewInventory(devices, map[string]common.Credential{
		"lab": {Username: "admin", Password: "admin"},
	})
	if err != nil {
		panic(err)
	}
	return inventory
}

func labInventory() *common.Inventory {
	return testInventory(map[string]common.Device{
		"r1": {Address: "10.0.0.1", Kind: common.DeviceKindCisco, CredentialID: "lab"},
		"r2": {Address: "10.0.0.2", Kind: common.DeviceKindCisco, CredentialID: "lab"},
		"h1": {Address: "10.0.0.10", Kind: common.DeviceKindLinux, CredentialID: "lab"},
	})
}
