package models

// Role identifies one of the seven physical channels of a recording.
type Role int

const (
	RoleSpeed Role = iota
	RoleLongAccel
	RoleLatAccel
	RoleVertAccel
	RoleRoll
	RolePitch
	RoleYaw
)

// NumRoles is the fixed channel count of a recording.
const NumRoles = 7

var roleNames = [...]string{"Speed", "LongAccel", "LatAccel", "VertAccel", "Roll", "Pitch", "Yaw"}

func (r Role) String() string {
	if r >= 0 && int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "Unknown"
}

// Roles returns every role in canonical column order.
func Roles() []Role {
	return []Role{RoleSpeed, RoleLongAccel, RoleLatAccel, RoleVertAccel, RoleRoll, RolePitch, RoleYaw}
}

// AngleRoles are the channels that receive bias correction.
func AngleRoles() []Role {
	return []Role{RoleRoll, RolePitch, RoleYaw}
}

// ChannelMap maps each canonical role to its 0-based source channel index
// (the position among the seven channel columns, time excluded).
type ChannelMap [NumRoles]int

// SourceOrder returns the source indices in canonical order.
func (m ChannelMap) SourceOrder() []int {
	out := make([]int, NumRoles)
	copy(out, m[:])
	return out
}
