package ayushya

import "github.com/google/uuid"

// HasUserUUID reports whether SessionObject.GetUserUUID will succeed.
func HasUserUUID(session *SessionObject) bool {
	if session == nil {
		return false
	}
	_, err := session.GetUserUUID()
	return err == nil
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
