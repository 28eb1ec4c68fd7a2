package model

import "time"

type File struct {
	ID     string `gorm:"primaryKey;size:64" json:"id"`
	RoomID string `gorm:"size:64;index;not null" json:"roomId"`

	OriginalName string `gorm:"size:255;not null" json:"name"`
	StoredName   string `gorm:"size:255;not null" json:"-"`
	StoragePath  string `gorm:"size:512;not null" json:"-"`

	FileSize int64  `gorm:"not null" json:"size"`
	MimeType string `gorm:"size:128" json:"type"`

	// A folder upload is stored as a single zip archive blob. FileCount keeps
	// the number of entries inside it for display; plain files have 0.
	IsFolder  bool `gorm:"default:false" json:"isFolder"`
	FileCount int  `gorm:"default:0" json:"fileCount"`

	UploadTime time.Time `gorm:"autoCreateTime;index" json:"uploadTime"`
}
