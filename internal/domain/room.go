package domain

type (
	RoomID   string
	RoomKind string
)

const (
	RoomKindUser      RoomKind = "user"
	RoomKindRole      RoomKind = "role"
	RoomKindInterview RoomKind = "interview"
	RoomKindWebRTC    RoomKind = "webrtc"
	RoomKindNote      RoomKind = "note"
)

// Room ids are namespaced by kind so one connection can sit in a user
// room, a role room and any number of interview/webrtc/note rooms at once.
func UserRoom(userID UserID) RoomID  { return RoomID("user:" + string(userID)) }
func RoleRoom(role Role) RoomID      { return RoomID("role:" + string(role)) }
func InterviewRoom(id string) RoomID { return RoomID("interview:" + id) }
func WebRTCRoom(id string) RoomID    { return RoomID("webrtc:" + id) }
func NoteRoom(noteID string) RoomID  { return RoomID("note:" + noteID) }

func (id RoomID) Kind() RoomKind {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return RoomKind(id[:i])
		}
	}
	return ""
}

// Suffix returns the id with its kind prefix stripped, e.g. the noteID
// of a note room.
func (id RoomID) Suffix() string {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return string(id[i+1:])
		}
	}
	return string(id)
}
