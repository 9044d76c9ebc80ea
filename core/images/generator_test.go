package images

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medtosdigital/aulagia/core/config"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func testServer(t *testing.T, handler func(w http.ResponseWriter, req generateRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		handler(w, req)
	}))
}

func generator(url string) *HTTPGenerator {
	return NewHTTPGenerator(config.Images{
		Endpoint: url,
		APIKey:   "sk-test",
		Model:    "gpt-image-1",
		Size:     "1536x1024",
		Timeout:  5 * time.Second,
	})
}

func TestGenerateBase64(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, req generateRequest) {
		if req.Prompt != "a river" || req.Model != "gpt-image-1" || req.N != 1 || req.Size != "1536x1024" {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"data":[{"b64_json":"` + base64.StdEncoding.EncodeToString(pngHeader) + `","revised_prompt":"a blue river"}]}`))
	})
	defer srv.Close()

	img, err := generator(srv.URL).Generate(context.Background(), "a river")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(img.Bytes) != string(pngHeader) || img.MimeType != "image/png" {
		t.Errorf("got bytes=%q mime=%q", img.Bytes, img.MimeType)
	}
	if img.RevisedPrompt != "a blue river" {
		t.Errorf("revised prompt = %q", img.RevisedPrompt)
	}
}

func TestGenerateURL(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, _ generateRequest) {
		w.Write([]byte(`{"data":[{"url":"https://cdn.example.com/1.png"}]}`))
	})
	defer srv.Close()

	img, err := generator(srv.URL).Generate(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if img.URL != "https://cdn.example.com/1.png" || img.Bytes != nil {
		t.Errorf("got %+v", img)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"api error", http.StatusBadRequest, `{"error":{"message":"prompt rejected"}}`, "prompt rejected"},
		{"plain error", http.StatusBadGateway, `upstream down`, "upstream down"},
		{"no images", http.StatusOK, `{"data":[]}`, "no images"},
		{"empty image", http.StatusOK, `{"data":[{}]}`, "empty image"},
		{"bad json", http.StatusOK, `{`, "decoding response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, func(w http.ResponseWriter, _ generateRequest) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			defer srv.Close()

			_, err := generator(srv.URL).Generate(context.Background(), "x")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}
