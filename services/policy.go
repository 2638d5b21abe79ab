package services

import (
	"wiki-engine/config"
	"wiki-engine/models"
)

// Policy answers the two capability questions the wiki core asks about a user.
type Policy interface {
	EditorCapable(user models.Identity) bool
	ModeratorCapable(user models.Identity) bool
}

// RolePolicy grants capabilities by role. An empty editor role set means
// every authenticated user may edit. Moderators can always edit.
type RolePolicy struct {
	editorRoles    map[models.UserRole]bool
	moderatorRoles map[models.UserRole]bool
}

func NewRolePolicy(cfg config.WikiConfig) *RolePolicy {
	p := &RolePolicy{
		editorRoles:    make(map[models.UserRole]bool),
		moderatorRoles: make(map[models.UserRole]bool),
	}
	for _, role := range cfg.EditorRoles {
		p.editorRoles[models.UserRole(role)] = true
	}
	for _, role := range cfg.ModeratorRoles {
		p.moderatorRoles[models.UserRole(role)] = true
	}
	return p
}

func (p *RolePolicy) EditorCapable(user models.Identity) bool {
	if !user.IsAuthenticated() {
		return false
	}
	if p.ModeratorCapable(user) || len(p.editorRoles) == 0 {
		return true
	}
	return p.editorRoles[user.Role]
}

func (p *RolePolicy) ModeratorCapable(user models.Identity) bool {
	return user.IsAuthenticated() && p.moderatorRoles[user.Role]
}

// NewPolicy returns the role policy, widened to anonymous editors when
// AnonymousEdits is set.
func NewPolicy(cfg config.WikiConfig) Policy {
	roles := NewRolePolicy(cfg)
	if !cfg.AnonymousEdits {
		return roles
	}
	return PolicyFuncs{
		Editor: func(user models.Identity) bool {
			return !user.IsAuthenticated() || roles.EditorCapable(user)
		},
		Moderator: roles.ModeratorCapable,
	}
}

// PolicyFuncs builds a Policy from two predicates.
type PolicyFuncs struct {
	Editor    func(models.Identity) bool
	Moderator func(models.Identity) bool
}

func (p PolicyFuncs) EditorCapable(user models.Identity) bool {
	return p.Editor != nil && p.Editor(user)
}

func (p PolicyFuncs) ModeratorCapable(user models.Identity) bool {
	return p.Moderator != nil && p.Moderator(user)
}

// deny picks the error for a missing capability: anonymous callers are asked
// to authenticate, everyone else is refused.
func deny(user models.Identity, message string) error {
	if !user.IsAuthenticated() {
		return models.ErrorUnauthorized{Message: "authentication required"}
	}
	return models.ErrorPermissionDenied{Message: message}
}
