package model

const (
	TicketStatusReserved = "RESERVED"
	TicketStatusPaid     = "PAID"
)

// TicketType describes what a ticket grants its holder.
type TicketType struct {
	ID            string `bson:"_id,omitempty" json:"id"`
	Name          string `bson:"name" json:"name"`
	IsRemote      bool   `bson:"is_remote" json:"is_remote"`
	IncludesHotel bool   `bson:"includes_hotel" json:"includes_hotel"`
}

// Ticket is a user's admission for an enrollment, embedding its type.
type Ticket struct {
	ID           string     `bson:"_id,omitempty" json:"id"`
	EnrollmentID string     `bson:"enrollment_id" json:"enrollment_id"`
	Status       string     `bson:"status" json:"status"`
	TicketType   TicketType `bson:"ticket_type" json:"ticket_type"`
}
