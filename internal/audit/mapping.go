package audit

import (
	"net/http"
	"strings"
)

// ActionResource holds action and resource derived from an HTTP method and route pattern.
type ActionResource struct {
	Action   string
	Resource string
}

// Route overrides for admin operations with a more specific meaning than their verb.
var routeOverrides = map[string]ActionResource{
	"PUT /admin/users/{id}/roles/{role}": {Action: ActionRoleAssigned, Resource: ResourceUser},
	"DELETE /admin/users/{id}/sessions":  {Action: ActionSessionsRevoked, Resource: ResourceSession},
}

// ParseRoute returns action and resource for a chi route pattern (e.g. GET /admin/users/{id}).
// Action is a verb: get, list, create, update, delete, or the lowercase method for others.
// Resource is the last literal path segment in singular form (e.g. users -> user).
func ParseRoute(method, pattern string) ActionResource {
	if ar, ok := routeOverrides[method+" "+pattern]; ok {
		return ar
	}
	segments := strings.Split(strings.Trim(pattern, "/"), "/")
	resource := ""
	endsWithParam := false
	for _, seg := range segments {
		if strings.HasPrefix(seg, "{") {
			endsWithParam = true
			continue
		}
		if seg != "" {
			resource = seg
			endsWithParam = false
		}
	}
	if resource == "" {
		resource = "unknown"
	}
	return ActionResource{Action: methodToAction(method, endsWithParam), Resource: strings.TrimSuffix(resource, "s")}
}

func methodToAction(method string, item bool) string {
	switch method {
	case http.MethodGet:
		if item {
			return "get"
		}
		return "list"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
