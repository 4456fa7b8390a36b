package module_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/vitalis/pkg/module"
)

func TestNewPrefixValidation(t *testing.T) {
	for _, prefix := range []string{"/api", "/scalar"} {
		if got := module.New(prefix, http.NewServeMux()).Prefix(); got != prefix {
			t.Errorf("Prefix() = %q, want %q", got, prefix)
		}
	}

	for _, prefix := range []string{"", "api", "/api/v1"} {
		t.Run("invalid "+prefix, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("New(%q) did not panic", prefix)
				}
			}()
			module.New(prefix, http.NewServeMux())
		})
	}
}

// echo writes the path the inner mux saw, prefixed with name.
func echo(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(name + " " + r.URL.Path))
	}
}

func TestRouter(t *testing.T) {
	api := http.NewServeMux()
	api.HandleFunc("GET /documents", echo("api"))
	api.HandleFunc("GET /documents/{id}", echo("api"))
	api.HandleFunc("GET /", echo("api"))

	scalar := http.NewServeMux()
	scalar.HandleFunc("GET /", echo("scalar"))

	apiModule := module.New("/api", api)
	var wrapped bool
	apiModule.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped = true
			next.ServeHTTP(w, r)
		})
	})

	router := module.NewRouter()
	router.Mount(apiModule)
	router.Mount(module.New("/scalar", scalar))
	router.HandleNative("GET /healthz", echo("native"))

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/api/documents", http.StatusOK, "api /documents"},
		{"/api/documents/", http.StatusOK, "api /documents"},
		{"/api/documents/7f3c", http.StatusOK, "api /documents/7f3c"},
		{"/api", http.StatusOK, "api /"},
		{"/scalar", http.StatusOK, "scalar /"},
		{"/healthz", http.StatusOK, "native /healthz"},
		{"/apix/documents", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}

	if !wrapped {
		t.Error("module middleware never ran")
	}
}

func TestServeLeavesRequestUntouched(t *testing.T) {
	m := module.New("/api", echo("api"))

	req := httptest.NewRequest("GET", "/api/profile", nil)
	rec := httptest.NewRecorder()
	m.Serve(rec, req)

	if rec.Body.String() != "api /profile" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if req.URL.Path != "/api/profile" {
		t.Errorf("original path mutated to %q", req.URL.Path)
	}
}
