package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSecurityHeaders(t *testing.T) {
	want := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Referrer-Policy":           "no-referrer",
		"Cache-Control":             "no-store",
	}

	cases := map[string]struct {
		handler echo.HandlerFunc
		code    int
	}{
		"success": {
			handler: func(c echo.Context) error { return c.JSON(http.StatusOK, map[string]int{"quantity": 3}) },
		},
		"handler error": {
			handler: func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "medication dispense not found") },
			code:    http.StatusNotFound,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/stock/item/1", nil), rec)

			err := SecurityHeaders()(tc.handler)(c)
			if tc.code == 0 && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.code != 0 {
				if he, ok := err.(*echo.HTTPError); !ok || he.Code != tc.code {
					t.Fatalf("expected %d, got %v", tc.code, err)
				}
			}
			for h, v := range want {
				if got := rec.Header().Get(h); got != v {
					t.Errorf("%s = %q, want %q", h, got, v)
				}
			}
		})
	}
}
