package auth

import (
	"strings"

	"github.com/go-faster/errors"
)

// Action enumerates the verbs a permission can grant.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ErrMalformedPermission is returned for permission strings that do not
// parse into a valid action/resource[/field] triple.
var ErrMalformedPermission = errors.New("malformed permission")

// Permission is a validated action/resource/field triple. The wire format
// is "action_resource" or "action_resource_field", e.g.
// "update_order_note". Parsing happens once at the boundary; malformed
// entries are rejected instead of being silently skipped.
type Permission struct {
	Action   Action
	Resource string
	Field    string
}

// ParsePermission parses and validates a permission string.
func ParsePermission(s string) (Permission, error) {
	parts := strings.SplitN(s, "_", 3)
	if len(parts) < 2 {
		return Permission{}, errors.Wrapf(ErrMalformedPermission, "%q", s)
	}

	action := Action(parts[0])
	switch action {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
	default:
		return Permission{}, errors.Wrapf(ErrMalformedPermission, "unknown action in %q", s)
	}

	if parts[1] == "" {
		return Permission{}, errors.Wrapf(ErrMalformedPermission, "empty resource in %q", s)
	}

	p := Permission{Action: action, Resource: parts[1]}
	if len(parts) == 3 {
		if parts[2] == "" {
			return Permission{}, errors.Wrapf(ErrMalformedPermission, "empty field in %q", s)
		}
		p.Field = parts[2]
	}
	return p, nil
}

// ParsePermissions parses a list of permission strings, failing on the
// first malformed entry.
func ParsePermissions(scopes []string) ([]Permission, error) {
	perms := make([]Permission, 0, len(scopes))
	for _, s := range scopes {
		p, err := ParsePermission(s)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, nil
}

// String renders the permission back into its wire format.
func (p Permission) String() string {
	if p.Field == "" {
		return string(p.Action) + "_" + p.Resource
	}
	return string(p.Action) + "_" + p.Resource + "_" + p.Field
}

// Allows reports whether this permission grants the given action on the
// given resource. A field-scoped permission still grants the whole
// resource action; field granularity is advisory for the caller.
func (p Permission) Allows(action Action, resource string) bool {
	return p.Action == action && p.Resource == resource
}

// AnyAllows reports whether any permission in the set grants the action.
func AnyAllows(perms []Permission, action Action, resource string) bool {
	for _, p := range perms {
		if p.Allows(action, resource) {
			return true
		}
	}
	return false
}
