package models

// Review is a public testimonial shown once an admin approves it.
type Review struct {
	BaseModel
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Comment  string `json:"comment"`
	Approved bool   `gorm:"index" json:"approved"`
}
