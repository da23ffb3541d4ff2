package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	service "github.com/okian/rivalry/internal/app"
	"github.com/okian/rivalry/internal/adapters/auth"
)

func TestGetErrorType(t *testing.T) {
	convey.Convey("Given HTTP status codes", t, func() {
		convey.So(getErrorType(500), convey.ShouldEqual, "server_error")
		convey.So(getErrorType(503), convey.ShouldEqual, "server_error")
		convey.So(getErrorType(429), convey.ShouldEqual, "rate_limit")
		convey.So(getErrorType(401), convey.ShouldEqual, "auth")
		convey.So(getErrorType(403), convey.ShouldEqual, "auth")
		convey.So(getErrorType(404), convey.ShouldEqual, "not_found")
		convey.So(getErrorType(400), convey.ShouldEqual, "client_error")
		convey.So(getErrorType(200), convey.ShouldEqual, "unknown")
	})
}

func TestMetricsMiddleware(t *testing.T) {
	convey.Convey("Given a handler wrapped by the metrics middleware", t, func() {
		h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte("x"))
		}, "test")

		convey.Convey("Then the status and body should pass through", func() {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest("GET", "/", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusConflict)
			convey.So(w.Body.String(), convey.ShouldEqual, "x")
		})
	})
}

func TestClassify(t *testing.T) {
	convey.Convey("Given errors from the layers below", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{wrapKind("op", ErrBadRequest, errors.New("boom")), http.StatusBadRequest, "bad_request"},
			{service.ErrInvalidMatch, http.StatusBadRequest, "bad_request"},
			{service.ErrUnknownSport, http.StatusNotFound, "unknown_sport"},
			{auth.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
			{auth.ErrForbidden, http.StatusForbidden, "forbidden"},
			{auth.ErrNotConfigured, http.StatusServiceUnavailable, "auth_not_configured"},
			{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
		}
		for _, c := range cases {
			status, code := classify(c.err)
			convey.So(status, convey.ShouldEqual, c.status)
			convey.So(code, convey.ShouldEqual, c.code)
		}
	})
}

func TestMatchRequest_ToInput(t *testing.T) {
	convey.Convey("Given a match request", t, func() {
		a, b := 6, 4

		convey.Convey("When the date is omitted", func() {
			in, err := matchRequest{ScoreA: &a, ScoreB: &b}.toInput()
			convey.So(err, convey.ShouldBeNil)
			convey.So(in.Date.IsZero(), convey.ShouldBeTrue)
			convey.So(in.ScoreA, convey.ShouldEqual, 6)
		})

		convey.Convey("When the date is set", func() {
			in, err := matchRequest{ID: " x ", Date: "2024-02-29", ScoreA: &a, ScoreB: &b}.toInput()
			convey.So(err, convey.ShouldBeNil)
			convey.So(in.ID, convey.ShouldEqual, "x")
			convey.So(in.Date.Day(), convey.ShouldEqual, 29)
		})

		convey.Convey("When a zero score is explicit it should be kept", func() {
			zero := 0
			in, err := matchRequest{ScoreA: &zero, ScoreB: &b}.toInput()
			convey.So(err, convey.ShouldBeNil)
			convey.So(in.ScoreA, convey.ShouldEqual, 0)
		})
	})
}
