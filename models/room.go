package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type Room struct {
	RoomId      uint            `json:"id" gorm:"primaryKey"`
	HotelID     uint            `json:"hotelId"`
	RoomName    string          `json:"roomName"`
	NumBed      int             `json:"numBed"`
	Acreage     int             `json:"acreage"`
	Price       int             `json:"price"` // Giá mỗi đêm (VND)
	Description string          `json:"description"`
	Status      int             `json:"status" gorm:"default:1"`
	Avatar      string          `json:"avatar"`
	Img         json.RawMessage `json:"img" gorm:"type:json"`
	People      int             `json:"people"`
	Parent      Hotel           `json:"parent" gorm:"foreignKey:HotelID"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (r *Room) ValidateStatus() error {
	if r.Status < 1 || r.Status > 3 {
		return fmt.Errorf("invalid status: %d, must be between 1 and 3", r.Status)
	}
	return nil
}
