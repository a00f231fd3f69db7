package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ParseConfigFile reads a file and parses it into the provided object.
// Files ending in .yaml or .yml are parsed as YAML, anything else as JSON.
func ParseConfigFile(destination interface{}, path string) error {
	log.WithFields(log.Fields{
		"datatype": fmt.Sprintf("%T", destination),
		"path":     path,
	}).Trace("Parsing config file")

	dat, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if isYAMLPath(path) {
		err = yaml.Unmarshal(dat, destination)
	} else {
		err = json.Unmarshal(dat, destination)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// WriteConfigFile serializes the object to the file, using the same format selection as ParseConfigFile.
func WriteConfigFile(source interface{}, path string) error {
	var dat []byte
	var err error
	if isYAMLPath(path) {
		dat, err = yaml.Marshal(source)
	} else {
		dat, err = json.MarshalIndent(source, "", "    ")
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	// Write to temp file, then rename into place
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, dat, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmpPath, err)
	}
	return nil
}
