package dynamo

// Attribute names referenced from expressions. Keep in sync with the
// dynamodbav tags on the domain types.
const (
	fieldCandidateID   = "candidate_id"
	fieldCreatedBy     = "created_by"
	fieldCreatedAt     = "created_at"
	fieldRoomID        = "room_id"
	fieldSeq           = "seq"
	fieldParticipants  = "participants"
	fieldJoinedAt      = "joined_at"
	fieldMessageCount  = "message_count"
	fieldLastMessageAt = "last_message_at"
)

const indexCreatedByCreatedAt = "created_by-created_at-index"
