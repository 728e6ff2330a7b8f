package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/palette/pkg/routes"
)

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(code) }
}

func group() routes.Group {
	return routes.Group{
		Prefix: "/recipes",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: status(http.StatusOK)},
			{Method: "POST", Pattern: "/{id}/execute", Handler: status(http.StatusAccepted)},
		},
		Children: []routes.Group{{
			Prefix: "/templates",
			Routes: []routes.Route{{Method: "POST", Pattern: "/parse", Handler: status(http.StatusCreated)}},
		}},
	}
}

func TestPatterns(t *testing.T) {
	want := []string{
		"GET /recipes",
		"POST /recipes/{id}/execute",
		"POST /recipes/templates/parse",
	}
	if diff := cmp.Diff(want, group().Patterns()); diff != "" {
		t.Errorf("patterns (-want +got):\n%s", diff)
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	routes.Register(mux, group())

	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/recipes", http.StatusOK},
		{"POST", "/recipes/abc/execute", http.StatusAccepted},
		{"POST", "/recipes/templates/parse", http.StatusCreated},
		{"DELETE", "/recipes", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s: got %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}
