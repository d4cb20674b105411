//go:build !linux

package sniffer

import "github.com/pkg/errors"

func boostPriority(priority int) error {
	return errors.New("priority boosting requires real time thread support")
}
