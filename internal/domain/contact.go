package domain

type ContactMessage struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,min=10,max=15,phone"`
	Subject string `json:"subject" validate:"required,min=5,max=150"`
	Message string `json:"message" validate:"required,min=20,max=2000"`
}
