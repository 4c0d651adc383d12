package domain

import "time"

type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    *string   `db:"first_name" json:"firstName,omitempty"`
	LastName     *string   `db:"last_name" json:"lastName,omitempty"`
	Organization *string   `db:"organization" json:"organization,omitempty"`
	Plan         string    `db:"plan" json:"plan"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

type ContactGroup struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"userId"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type Contact struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"userId"`
	GroupID     *int64     `db:"group_id" json:"groupId,omitempty"`
	PhoneNumber string     `db:"phone_number" json:"phoneNumber"`
	FirstName   *string    `db:"first_name" json:"firstName,omitempty"`
	LastName    *string    `db:"last_name" json:"lastName,omitempty"`
	Email       *string    `db:"email" json:"email,omitempty"`
	IsActive    bool       `db:"is_active" json:"isActive"`
	HasOptedOut bool       `db:"has_opted_out" json:"hasOptedOut"`
	OptOutDate  *time.Time `db:"opt_out_date" json:"optOutDate,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

type MessageTemplate struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	Name      string    `db:"name" json:"name"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
