package core

import hcversion "github.com/hashicorp/go-version"

// CheckProtocolVersion reports whether a frame declaring remote can be
// handled by a peer running local (normally types.ProtocolVersion). Only a
// greater major version is treated as unsupported; this peer's own version
// is always supported. It is a real semver comparison, not a plain string
// equality check, so a future incompatible major version is rejected
// instead of merely "not equal".
func CheckProtocolVersion(local, remote string) error {
	if remote == local {
		return nil
	}
	lv, err := hcversion.NewVersion(local)
	if err != nil {
		return ErrUnsupportedProtocol
	}
	rv, err := hcversion.NewVersion(remote)
	if err != nil {
		return ErrUnsupportedProtocol
	}
	if rv.Segments()[0] > lv.Segments()[0] {
		return ErrUnsupportedProtocol
	}
	return nil
}
