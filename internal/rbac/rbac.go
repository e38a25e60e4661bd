package rbac

import "strings"

type Role string
type Action string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

const (
	ActionMention Action = "mention"
	ActionList    Action = "list"
	ActionUpload  Action = "upload"
	ActionAdmin   Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleMember:
		return action == ActionMention || action == ActionList || action == ActionUpload
	default:
		return false
	}
}

// AllowList resolves caller ids to roles. Ids are compared case-insensitively.
type AllowList struct {
	admins map[string]struct{}
}

func NewAllowList(adminIDs []string) AllowList {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		id = normalizeID(id)
		if id != "" {
			admins[id] = struct{}{}
		}
	}
	return AllowList{admins: admins}
}

// RoleOf returns RoleAdmin for allow-listed callers. An empty caller id gets
// no role at all.
func (a AllowList) RoleOf(caller string) Role {
	caller = normalizeID(caller)
	if caller == "" {
		return ""
	}
	if _, ok := a.admins[caller]; ok {
		return RoleAdmin
	}
	return RoleMember
}

func (a AllowList) Allows(caller string, action Action) bool {
	return Can(a.RoleOf(caller), action)
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
