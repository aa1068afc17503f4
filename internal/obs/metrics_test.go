package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                "/",
		"/metrics":                        "/metrics",
		"/v1/access-codes/abc":            "/v1/access-codes/:id",
		"/v1/roles/abc":                   "/v1/roles/:id",
		"/v1/roles/abc/permissions":       "/v1/roles/:id/permissions",
		"/v1/roles/abc/extra":             "/v1/roles/abc/extra",
		"/v1/auth/login":                  "/v1/auth/login",
		"/v1/access-codes?is_active=true": "/v1/access-codes",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
