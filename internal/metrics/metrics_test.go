package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestConsentCheck(t *testing.T) {
	before := testutil.ToFloat64(consentChecks.WithLabelValues("AcademicRecord", OutcomeError))
	ConsentCheck("AcademicRecord", OutcomeError)
	after := testutil.ToFloat64(consentChecks.WithLabelValues("AcademicRecord", OutcomeError))
	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %f", after-before)
	}
}

func TestMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get(
		"/items/:id", func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusNoContent)
		},
	)
	app.Get(
		"/broken", func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTeapot, "nope")
		},
	)

	for _, path := range []string{"/items/1", "/items/2"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
	}
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/broken", nil))
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/:id", "204")); got != 2 {
		t.Errorf("expected 2 requests for /items/:id, got %f", got)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/broken", "418")); got != 1 {
		t.Errorf("expected 1 request for /broken, got %f", got)
	}
}

func TestInitTwice(t *testing.T) {
	Init("test")
	Init("test")
	if got := testutil.ToFloat64(buildInfo.WithLabelValues("test")); got != 1 {
		t.Errorf("expected build info gauge to be 1, got %f", got)
	}
}
