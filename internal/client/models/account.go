package models

import "time"

type Business struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Currency  string     `json:"currency"`
	Slug      string     `json:"slug"`
	Image     string     `json:"image"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt"`
}

type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt"`
	Business  *Business  `json:"business"`
}

// BusinessTypeOption is a select option served by /business-types/options.
type BusinessTypeOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}
