// Package access holds the pure authorization rules. There are exactly
// two kinds: "can act as self" and "is a party to this message". The
// functions consume the verified caller identity and the target resource
// and hold no state; callers translate false into a 403.
package access

import "github.com/messagely/messagely/internal/types"

// CanViewMessage reports whether caller may read the message: true iff
// the caller is the sender or the recipient. A third identity is always
// denied regardless of any other attribute.
func CanViewMessage(caller string, msg *types.Message) bool {
	if caller == "" || msg == nil {
		return false
	}
	return caller == msg.FromUsername || caller == msg.ToUsername
}

// CanMarkRead reports whether caller may stamp the read receipt: only
// the recipient may.
func CanMarkRead(caller string, msg *types.Message) bool {
	if caller == "" || msg == nil {
		return false
	}
	return caller == msg.ToUsername
}

// CanViewProfile reports whether caller may read targetUsername's
// detailed profile and message listings.
func CanViewProfile(caller, targetUsername string) bool {
	return caller != "" && caller == targetUsername
}

// CanListUsers reports whether caller may list the user directory: any
// authenticated identity may.
func CanListUsers(caller string) bool {
	return caller != ""
}
