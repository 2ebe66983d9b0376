package chats

// seedConversation is one conversation of the first-run dataset, in
// plaintext. It is encrypted before the store is first written.
type seedConversation struct {
	id, name, lastMessage, time, avatar string
	unread                              int
	private                             bool
	messages                            []seedMessage
}

type seedMessage struct {
	id     string
	text   string
	sender Sender
	time   string
}

var seedData = []seedConversation{
	{
		id:          "2",
		name:        "Design Team",
		lastMessage: "The new mesh gradients look sick! 🔥",
		time:        "10:23 AM",
		unread:      2,
		avatar:      "https://images.unsplash.com/photo-1522071823991-b59fea12f4ef?w=100&h=100&fit=crop",
		messages: []seedMessage{
			{id: "m1", text: "Did you see the new UI?", sender: SenderOther, time: "10:20 AM"},
			{id: "m2", text: "The new mesh gradients look sick! 🔥", sender: SenderOther, time: "10:23 AM"},
		},
	},
	{
		id:          "3",
		name:        "Sarah Jordan",
		lastMessage: "Voice note sent (0:12)",
		time:        "Yesterday",
		private:     true,
		avatar:      "https://images.unsplash.com/photo-1494790108377-be9c29b29330?w=100&h=100&fit=crop",
		messages: []seedMessage{
			{id: "m1", text: "Hey, checking in on the project.", sender: SenderOther, time: "Yesterday"},
		},
	},
	{
		id:          "4",
		name:        "Alex Chen",
		lastMessage: "Sure, I can meet at 5.",
		time:        "Monday",
		avatar:      "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=100&h=100&fit=crop",
		messages: []seedMessage{
			{id: "m1", text: "Are we still on for today?", sender: SenderSelf, time: "Monday"},
			{id: "m2", text: "Sure, I can meet at 5.", sender: SenderOther, time: "Monday"},
		},
	},
}
