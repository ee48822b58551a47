// internal/models/common.go
package models

// Address là một object có cấu trúc để lưu thông tin địa chỉ.
// FullText is always present; coordinates are optional (free-text addresses).
type Address struct {
	FullText  string  `bson:"fullText" json:"fullText"`
	Latitude  float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
}

// MediaPointer đại diện cho một tài liệu media được lưu trữ trên S3.
type MediaPointer struct {
	ID       string `bson:"id" json:"id"`
	URL      string `bson:"url" json:"url"`
	FileName string `bson:"fileName" json:"fileName"`
	FileType string `bson:"fileType" json:"fileType"` // e.g. "image/jpeg"
}
