package models

import (
	"encoding/json"
	"time"
)

type Hotel struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	UserID    uint            `json:"userId"` // Chủ khách sạn (partner)
	Name      string          `json:"name"`
	Address   string          `json:"address"`
	Ward      string          `json:"ward"`
	District  string          `json:"district"`
	Province  string          `json:"province"`
	Price     int             `json:"price"`
	Avatar    string          `json:"avatar"`
	Img       json.RawMessage `json:"img" gorm:"type:json"`
	Status    int             `json:"status" gorm:"default:1"`
	Rooms     []Room          `json:"rooms" gorm:"foreignKey:HotelID"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}
