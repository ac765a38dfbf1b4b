package api

import "time"

// User is the identity record returned by the auth endpoints.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up payload.
type Registration struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password2"`
	Role            string `json:"role,omitempty"`
}

// Participant summarises the other side of a conversation.
type Participant struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ListingSummary identifies the hostel a conversation is about.
type ListingSummary struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Conversation is one entry of the inbox.
type Conversation struct {
	ID            int             `json:"id"`
	OtherParty    Participant     `json:"other_user"`
	Listing       *ListingSummary `json:"hostel,omitempty"`
	LastMessage   string          `json:"last_message"`
	LastMessageAt time.Time       `json:"last_message_time"`
	UnreadCount   int             `json:"unread_count"`
}

// Attachment is a file attached to a message.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Message is a single message in a conversation.
type Message struct {
	ID             int          `json:"id"`
	ConversationID int          `json:"conversation"`
	SenderID       int          `json:"sender"`
	Content        string       `json:"content"`
	CreatedAt      time.Time    `json:"created_at"`
	Attachments    []Attachment `json:"attachments"`
}

// ConversationDetail is a conversation with its message history.
type ConversationDetail struct {
	Conversation
	Messages []Message `json:"messages"`
}

// SendRequest describes a message to post. Exactly one of ConversationID and
// RecipientID is set; Files are local paths uploaded as attachments.
type SendRequest struct {
	ConversationID int
	RecipientID    int
	ListingID      int
	Content        string
	Files          []string
}

// Hostel is a listing as shown in the browse screen.
type Hostel struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Location       string  `json:"location"`
	Price          float64 `json:"price"`
	RoomsAvailable int     `json:"available_rooms"`
	ManagerID      int     `json:"manager"`
}

// Booking is a reservation of a room in a hostel.
type Booking struct {
	ID         int     `json:"id"`
	HostelName string  `json:"hostel_name"`
	Status     string  `json:"status"`
	CheckIn    string  `json:"check_in"`
	Amount     float64 `json:"amount"`
}
