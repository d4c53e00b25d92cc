// Package privacy keeps raw identifiers and client addresses out of logs.
package privacy

import (
	"encoding/hex"
	"net/netip"

	"golang.org/x/crypto/blake2b"
)

// AnonymizeIP masks an address to its network: IPv4 to /24, IPv6 to /48.
// Empty input yields "unknown"; unparseable input yields "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// pseudonymKey is fixed so the same identifier maps to the same pseudonym
// across restarts and replicas; log correlation depends on it.
var pseudonymKey = []byte("abuseguard.identifier.v1")

// PseudonymizeIdentifier returns a short keyed BLAKE2b digest of a login
// identifier. Equal identifiers yield equal pseudonyms.
func PseudonymizeIdentifier(identifier string) string {
	if identifier == "" {
		return ""
	}
	h, err := blake2b.New(16, pseudonymKey)
	if err != nil {
		// Only reachable with an oversized key.
		panic(err)
	}
	h.Write([]byte(identifier))
	return "id_" + hex.EncodeToString(h.Sum(nil))
}
