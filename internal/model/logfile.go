package model

import "time"

// LogFile is one decompressed file taken from an archive attachment.
type LogFile struct {
	Name     string
	Modified time.Time
	Content  []byte
}
