package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a router with the dashboard registered", t, func() {
		r := chi.NewRouter()
		r.Get("/api/v1/sports", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		Register(context.Background(), r)

		Convey("Then / should serve the dashboard page", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/", http.NoBody))

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(w.Body.String(), ShouldContainSubstring, "id=\"sport-tabs\"")
		})

		Convey("And the script should be served", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/app.js", http.NoBody))

			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.Contains(w.Body.String(), "/api/v1/sports"), ShouldBeTrue)
		})

		Convey("And missing assets should be 404", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/missing.png", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And earlier routes should keep priority", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/sports", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusTeapot)
		})

		Convey("And writes should be refused", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("POST", "/", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSiteHandlerWithNilRouter(t *testing.T) {
	Convey("Given a nil router", t, func() {
		Convey("When registering the dashboard", func() {
			Convey("Then it should panic", func() {
				So(func() {
					Register(context.Background(), nil)
				}, ShouldPanic)
			})
		})
	})
}

func TestSiteErrors(t *testing.T) {
	Convey("Given site error constants", t, func() {
		So(ErrServe, ShouldNotBeNil)
		So(ErrServe.Error(), ShouldEqual, "dashboard serve failed")
	})
}
