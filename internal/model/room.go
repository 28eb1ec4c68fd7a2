// Package model defines database models
package model

import "time"

type Room struct {
	ID string `gorm:"primaryKey;size:64" json:"id"`

	// Access code handed out at creation. Unique across every room ever
	// created, active or not, so a code can never match two rooms.
	Code string `gorm:"uniqueIndex;size:64;not null" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expiresAt"`

	// Byte quota, fixed at creation. CurrentSize must stay equal to the sum
	// of FileSize over the room's file rows once uploads settle.
	MaxSize     int64 `gorm:"default:104857600" json:"maxSize"`
	CurrentSize int64 `gorm:"default:0" json:"currentSize"`

	// Rooms are soft-deleted. An inactive row keeps its id reserved and gets
	// reactivated in place when the same custom id is requested again.
	IsActive bool `gorm:"default:true;index" json:"-"`

	Files []File `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"-"`
}
