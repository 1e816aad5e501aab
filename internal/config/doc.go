// Package config provides user configuration for the WASP uploader.
//
// A small YAML file supplies the defaults the stage1 and stage2 commands
// would otherwise need on every invocation: which catalog profile to use,
// which interface or sysfs directory reaches the coprocessor, and how long
// to wait for it. Command-line flags always win.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/wasp-uploader/config.yaml or $HOME/.config/wasp-uploader/config.yaml
//   - macOS: $HOME/.config/wasp-uploader/config.yaml
//   - Windows: %LOCALAPPDATA%\wasp-uploader\config.yaml
//
// # Example
//
//	version: 1
//	stage1:
//	  profile: 3390-sysfs
//	  sysfs_path: /sys/bus/mdio_bus/devices/ltq_mdio-1:07
//	  poll_timeout: 15s
//	stage2:
//	  profile: stage2-eth
//	  interface: eth0
//	  session_timeout: 2m
//
// # Thread Safety
//
// The global settings use sync.Once for safe initialization across goroutines.
// File writes are serialized by a mutex and are atomic.
package config
