package obs

import "strings"

// CanonicalPath collapses resource identifiers inside metric path labels so
// every access code or role does not mint its own time series.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) >= 3 && segments[0] == "v1" {
		switch segments[1] {
		case "access-codes":
			if len(segments) == 3 {
				return "/v1/access-codes/:id"
			}
		case "roles":
			if len(segments) == 3 {
				return "/v1/roles/:id"
			}
			if len(segments) == 4 && segments[3] == "permissions" {
				return "/v1/roles/:id/permissions"
			}
		}
	}
	return path
}
