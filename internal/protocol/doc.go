// Package protocol implements the wire formats spoken by the WASP coprocessor
// bootloader.
//
// WASP is the Atheros network coprocessor found next to the main SoC on AVM
// FRITZ!Box boards. It has no flash interface of its own and boots in two
// stages, each stage speaking its own transport:
//
//   - Stage 1: a register window of nine 16-bit registers reachable over MDIO
//     (or a sysfs mirror of it). The host writes load parameters, a checksum
//     and 14-byte data frames, then issues a start command.
//   - Stage 2: raw Ethernet frames of EtherType 0x88bd. The running stage-1
//     firmware asks for the stage-2 image (and optionally a configuration
//     image) which the host streams in 1024-byte chunks.
//
// # Register Layout
//
//	ZERO    0x000  response channel (device)
//	STATUS  0x700  command/response channel
//	DATA1   0x702  payload
//	 ...
//	DATA7   0x70e  payload
//
// # Packet Layout
//
// All integers are big-endian:
//
//	[0-1]   packet_start   0x1200
//	[2-6]   padding
//	[7-8]   command
//	[9-10]  response
//	[11-12] counter
//	[13]    padding
//	[14+]   payload (up to 1028 bytes)
//
// # Usage Example
//
//	words := protocol.FrameForRegisters(image[0:14])
//
//	pkt, err := protocol.DecodePacket(frame.Payload)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(protocol.PacketResponseName(pkt.Response))
//
// All functions in this package are stateless and safe for concurrent use.
package protocol
