// Package transport provides the links the WASP upload engines talk
// through.
//
// Stage-1 uses a RegisterLink: a window of 16-bit registers reachable either
// through per-register sysfs files (SysfsLink) or MDIO ioctls (MDIOLink).
// Stage-2 uses a PacketLink: raw Ethernet frames of a single EtherType on one
// interface (EthernetLink).
//
// MemRegisters and Loopback are in-memory implementations used by tests and
// by the CLI's --dry-run mode.
package transport
