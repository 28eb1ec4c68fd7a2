// Package validators checks request input before it reaches the registries
package validators

import (
	"errors"
	"regexp"
	"slices"

	"webshare/room-api/pkg/util"
)

const (
	MinTTLMinutes = 3
	MaxTTLMinutes = 1440
)

var (
	validStrengths = []string{util.CodeSimple, util.CodeMedium, util.CodeStrong}
	roomIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// RoomCreateValidator checks the create-room input. An empty customId means
// "generate one" and is always fine.
func RoomCreateValidator(customID, codeStrength string, ttlMinutes int) error {
	if customID != "" {
		if len(customID) < 3 || len(customID) > 50 {
			return errors.New("room id must be between 3 and 50 characters")
		}
		if !roomIDPattern.MatchString(customID) {
			return errors.New("room id may only contain letters, digits, underscores and hyphens")
		}
	}

	if codeStrength != "" && !slices.Contains(validStrengths, codeStrength) {
		return errors.New("code strength must be simple, medium or strong")
	}

	if ttlMinutes < MinTTLMinutes || ttlMinutes > MaxTTLMinutes {
		return errors.New("expiry must be between 3 minutes and 1 day (1440 minutes)")
	}

	return nil
}
