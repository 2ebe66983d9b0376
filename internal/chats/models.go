package chats

import "time"

// Sender tags who wrote a message.
type Sender string

const (
	SenderSelf  Sender = "me"
	SenderOther Sender = "other"
)

// Kind is the payload type of a message.
type Kind string

const (
	KindText  Kind = "text"
	KindAudio Kind = "audio"
)

// VoicePreview replaces the preview of a conversation whose last message is
// a voice note.
const VoicePreview = "Voice Message"

// Contact identifies the other side of a conversation when creating one.
// PhoneNumber is the alternate identity used when ID does not match.
type Contact struct {
	ID          string
	Name        string
	Avatar      string
	PhoneNumber string
}

// Conversation is the decrypted projection handed to callers. Changing it
// has no effect on the store.
type Conversation struct {
	ID                 string
	DisplayName        string
	IsPrivate          bool
	LastMessagePreview string
	LastActivityLabel  string
	UnreadCount        int
	Avatar             string
	PhoneNumber        string
	Messages           []Message
}

// Message is the plaintext projection of a stored message. It never carries
// ciphertext.
type Message struct {
	ID          string
	Sender      Sender
	Text        string
	SentAtLabel string
	// SentAt is zero for seed and legacy messages.
	SentAt      time.Time
	Kind        Kind
	IsEncrypted bool
	// Unavailable marks a message whose ciphertext could not be decrypted;
	// Text then holds cryptox.DecryptionPlaceholder.
	Unavailable bool
}

// conversationRecord is the persisted form of a conversation inside the
// single store document.
type conversationRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LastMessage string `json:"lastMessage"`
	// LastMessageEncrypted is set when LastMessage holds ciphertext; the
	// preview repeats message text and must not sit in the store in clear.
	LastMessageEncrypted bool            `json:"lastMessageEncrypted,omitempty"`
	Time                 string          `json:"time"`
	Unread               int             `json:"unread"`
	IsPrivate            bool            `json:"isPrivate,omitempty"`
	Avatar               string          `json:"avatar,omitempty"`
	PhoneNumber          string          `json:"phoneNumber,omitempty"`
	Messages             []messageRecord `json:"messages"`
}

// messageRecord is the persisted form of a message. Encrypted messages keep
// only Ciphertext; legacy messages (IsEncrypted false) keep Text.
type messageRecord struct {
	ID          string     `json:"id"`
	Sender      Sender     `json:"sender"`
	Ciphertext  string     `json:"ciphertext,omitempty"`
	Text        string     `json:"text,omitempty"`
	Time        string     `json:"time"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	Type        Kind       `json:"type,omitempty"`
	IsEncrypted bool       `json:"isEncrypted"`
}
