//go:build !linux

package preflight

import "errors"

func missingCapabilities() ([]string, error) {
	return nil, errors.New("capability checks are only supported on Linux")
}
