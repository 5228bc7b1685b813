package model

import "time"

// News is a public announcement.
type News struct {
    ID          int64     `json:"id"`
    Title       string    `json:"title"`
    Description string    `json:"description"`
    CreatedAt   time.Time `json:"createdAt"`
}

// Notification is addressed to one profile, or to everyone when ProfileID
// is nil.
type Notification struct {
    ID          int64     `json:"id"`
    ProfileID   *int64    `json:"profileId"`
    Title       string    `json:"title"`
    Description string    `json:"description"`
    Type        string    `json:"type"`
    IsRead      bool      `json:"isRead"`
    CreatedAt   time.Time `json:"createdAt"`
}

// Comment is feedback attached to an order.
type Comment struct {
    ID        int64     `json:"id"`
    OrderID   int64     `json:"orderId"`
    Author    string    `json:"author"`
    Content   string    `json:"content"`
    Rating    *int      `json:"rating"`
    CreatedAt time.Time `json:"createdAt"`
}

// Report is a field submission filed by a guard for an order.  File paths
// are relative to the upload root.
type Report struct {
    ID          int64     `json:"id"`
    OrderID     int64     `json:"orderId"`
    GuardID     int64     `json:"guardId"`
    Description string    `json:"description"`
    PhotoPath   *string   `json:"photo"`
    AudioPath   *string   `json:"audioNote"`
    CreatedAt   time.Time `json:"createdAt"`
}
