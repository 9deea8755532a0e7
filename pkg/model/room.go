package model

// Room is a bookable hotel room with a fixed capacity.
type Room struct {
	ID       string `bson:"_id,omitempty" json:"id"`
	HotelID  string `bson:"hotel_id" json:"hotel_id"`
	Name     string `bson:"name" json:"name"`
	Capacity int64  `bson:"capacity" json:"capacity"`
}

// Hotel groups rooms for an event venue.
type Hotel struct {
	ID      string `bson:"_id,omitempty" json:"id"`
	EventID string `bson:"event_id" json:"event_id"`
	Name    string `bson:"name" json:"name"`
}
