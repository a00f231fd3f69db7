package common

import (
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"dev.hon.one/routewatch/util"
)

// DeviceKind - Category which decides the command syntax and parser used for a device.
type DeviceKind string

// Device kinds.
const (
	DeviceKindCisco DeviceKind = "cisco"
	DeviceKindLinux DeviceKind = "linux"
)

// Credential - Credential for a device.
type Credential struct {
	Username       string `json:"username" yaml:"username"`
	Password       string `json:"password,omitempty" yaml:"password,omitempty"`
	PrivateKeyPath string `json:"private_key_path,omitempty" yaml:"private_key_path,omitempty"`
}

// Device - A device to collect from.
type Device struct {
	Address      string     `json:"address" yaml:"address"`               // Unique
	Port         uint       `json:"port,omitempty" yaml:"port,omitempty"` // Optional, default to normal service port
	Kind         DeviceKind `json:"kind" yaml:"kind"`
	CredentialID string     `json:"credential_id" yaml:"credential_id"`
}

// Inventory - Devices and credentials, keyed by identifier. Safe for concurrent use.
type Inventory struct {
	mutex       sync.RWMutex
	devicesPath string
	devices     map[string]Device
	credentials map[string]Credential
}

// NewInventory - Create an in-memory inventory. Entries are validated the same way as when loaded.
func NewInventory(devices map[string]Device, credentials map[string]Credential) (*Inventory, error) {
	inventory := &Inventory{
		devices:     make(map[string]Device, len(devices)),
		credentials: make(map[string]Credential, len(credentials)),
	}
	for credentialID, credential := range credentials {
		if credentialID == "" || credential.Username == "" {
			return nil, fmt.Errorf("invalid credential %q: missing fields", credentialID)
		}
		inventory.credentials[credentialID] = credential
	}
	for deviceID, device := range devices {
		if err := inventory.validateDevice(deviceID, device); err != nil {
			return nil, err
		}
		inventory.devices[deviceID] = device
	}
	return inventory, nil
}

// LoadInventory - Load devices and credentials from files.
func LoadInventory(devicesPath string, credentialsPath string) (*Inventory, error) {
	if devicesPath == "" {
		return nil, fmt.Errorf("device config path missing")
	}
	if credentialsPath == "" {
		return nil, fmt.Errorf("credentials config path missing")
	}

	var credentials map[string]Credential
	if err := util.ParseConfigFile(&credentials, credentialsPath); err != nil {
		return nil, err
	}
	var devices map[string]Device
	if err := util.ParseConfigFile(&devices, devicesPath); err != nil {
		return nil, err
	}

	inventory, err := NewInventory(devices, credentials)
	if err != nil {
		return nil, err
	}
	inventory.devicesPath = devicesPath

	log.WithFields(log.Fields{
		"credential_count": len(credentials),
		"device_count":     len(devices),
		"devices_path":     devicesPath,
	}).Info("Loaded inventory")

	return inventory, nil
}

// Unknown kinds are accepted here and rejected per collection instead.
func (inventory *Inventory) validateDevice(deviceID string, device Device) error {
	if deviceID == "" || device.Address == "" || device.CredentialID == "" {
		return fmt.Errorf("invalid device %q: missing fields", deviceID)
	}
	if _, found := inventory.credentials[device.CredentialID]; !found {
		return fmt.Errorf("invalid device %q: %w: %s", deviceID, ErrCredentialNotFound, device.CredentialID)
	}
	for otherID, other := range inventory.devices {
		if otherID != deviceID && other.Address == device.Address {
			return fmt.Errorf("invalid device %q: duplicate address %s (also used by %q)", deviceID, device.Address, otherID)
		}
	}
	return nil
}

// Get - Get a device by identifier.
func (inventory *Inventory) Get(deviceID string) (Device, bool) {
	inventory.mutex.RLock()
	defer inventory.mutex.RUnlock()
	device, found := inventory.devices[deviceID]
	return device, found
}

// Credential - Get a credential by identifier.
func (inventory *Inventory) Credential(credentialID string) (Credential, bool) {
	inventory.mutex.RLock()
	defer inventory.mutex.RUnlock()
	credential, found := inventory.credentials[credentialID]
	return credential, found
}

// Devices - Copy of all devices.
func (inventory *Inventory) Devices() map[string]Device {
	inventory.mutex.RLock()
	defer inventory.mutex.RUnlock()
	devices := make(map[string]Device, len(inventory.devices))
	for deviceID, device := range inventory.devices {
		devices[deviceID] = device
	}
	return devices
}

// DeviceIDs - All device identifiers in enumeration order (sorted).
func (inventory *Inventory) DeviceIDs() []string {
	inventory.mutex.RLock()
	defer inventory.mutex.RUnlock()
	deviceIDs := make([]string, 0, len(inventory.devices))
	for deviceID := range inventory.devices {
		deviceIDs = append(deviceIDs, deviceID)
	}
	sort.Strings(deviceIDs)
	return deviceIDs
}

// Add - Add or replace a device. Not reflected in a running cycle until its next enumeration.
func (inventory *Inventory) Add(deviceID string, device Device) error {
	inventory.mutex.Lock()
	defer inventory.mutex.Unlock()
	if err := inventory.validateDevice(deviceID, device); err != nil {
		return err
	}
	inventory.devices[deviceID] = device
	log.WithFields(log.Fields{
		"device":  deviceID,
		"address": device.Address,
		"kind":    device.Kind,
	}).Info("Added device")
	return nil
}

// Save - Write devices back to the file they were loaded from.
func (inventory *Inventory) Save() error {
	inventory.mutex.RLock()
	defer inventory.mutex.RUnlock()
	if inventory.devicesPath == "" {
		return fmt.Errorf("inventory was not loaded from a file")
	}
	return util.WriteConfigFile(inventory.devices, inventory.devicesPath)
}
