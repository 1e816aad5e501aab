// Package profile holds the WASP hardware revision catalog.
//
// Board revisions differ in register codes, start handshake, checksum and
// timing. Rather than forking the upload code per board, each revision is a
// row in an embedded YAML file:
//
//	cat, err := profile.Load()
//	p, err := cat.Lookup("3390-mdio", 1)
//
// Users can supply their own catalog with LoadFile.
package profile
