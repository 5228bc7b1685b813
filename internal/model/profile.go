package model

import "time"

// Profile is an identity record.  PasswordHash never leaves the server.
type Profile struct {
    ID           int64     `json:"id"`
    FirstName    string    `json:"firstName"`
    LastName     string    `json:"lastName"`
    Username     string    `json:"username"`
    Mail         string    `json:"mail"`
    Phone        string    `json:"phone"`
    JobTitle     string    `json:"jobTitle"`
    PasswordHash string    `json:"-"`
    Role         Role      `json:"role"`
    Avatar       *string   `json:"avatar"`
    CreatedAt    time.Time `json:"createdAt"`
}

// GuardDetails extends a profile whose role is guard.
type GuardDetails struct {
    ProfileID       int64   `json:"profileId"`
    City            string  `json:"city"`
    Gender          string  `json:"gender"`
    YearsExperience int     `json:"yearsExperience"`
    Specialties     string  `json:"specialties"`
    FirearmLicense  bool    `json:"firearmLicense"`
    Rating          float64 `json:"rating"`
}

// Guard is the joined view returned by the guard search.
type Guard struct {
    Profile
    Details GuardDetails `json:"details"`
}
