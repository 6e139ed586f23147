// Package config provides configuration management for metamonitor.
//
// # Overview
//
// The config package uses Viper to load configuration from YAML files and
// environment variables. It carries every detector threshold of the monitor
// together with session, logging and store settings.
//
// # Configuration File
//
// The configuration is stored at ~/.metamonitor/config.yaml and is created
// with defaults on first use. The file structure mirrors the Go structs in
// this package and in the cognitive detector packages.
//
// # Environment Variables
//
// Values present in the file can be overridden using environment variables
// with the METAMONITOR_ prefix. Nested fields are separated by underscores.
//
// Examples:
//   - METAMONITOR_LOGGING_LEVEL=debug
//   - METAMONITOR_MONITOR_CIRCULAR_THRESHOLD=0.7
//   - METAMONITOR_STORE_ENABLED=true
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	m := monitor.New(cfg.Monitor)
package config
