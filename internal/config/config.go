// Package config loads the process configuration from a JSON file. A
// malformed or missing file is fatal at startup; the daemon never runs with
// partial configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Defaults applied when an address field is absent.
const (
	DefaultHost = "localhost"
	DefaultPort = 8080
)

// Config names this server and carries its listen address plus the address
// of an optional peer server.
type Config struct {
	Name         string  `json:"name"`
	Address      Address `json:"address"`
	SecondServer Address `json:"second_server"`
}

// Address is a host/port pair where both parts are optional.
type Address struct {
	IP   *string `json:"ip"`
	Port *uint32 `json:"port"`
}

// HostPort renders the address, defaulting to localhost:8080.
func (a Address) HostPort() string {
	host := DefaultHost
	if a.IP != nil {
		host = *a.IP
	}
	port := uint32(DefaultPort)
	if a.Port != nil {
		port = *a.Port
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	c := &Config{}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return c, nil
}
