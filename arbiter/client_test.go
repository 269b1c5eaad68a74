/*
Copyright 2025 The thumbcache authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package arbiter_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/avatarlab/thumbcache/arbiter"
	"github.com/avatarlab/thumbcache/config"
	"github.com/avatarlab/thumbcache/imgformat"
	"github.com/avatarlab/thumbcache/store"
)

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x01, 0x02}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(&config.Options{
		OutputDir:      t.TempDir(),
		StorageAddress: ":9090",
	}, nil)
	if err != nil {
		t.Fatalf("error while bootstrapping store: %v", err)
	}
	return s
}

func Test_ParseRenderType(t *testing.T) {
	tests := []struct {
		in   string
		want arbiter.RenderType
	}{
		{"headshot", arbiter.TypeHeadshot},
		{"HEADSHOT", arbiter.TypeHeadshot},
		{"", arbiter.TypeHeadshot},
		{"thumb", arbiter.TypeThumbnail},
		{"thumbnail", arbiter.TypeThumbnail},
		{"fullbody", arbiter.TypeFullBody},
		{"poster", arbiter.RenderType("poster")},
	}

	for _, tt := range tests {
		t.Run("parse "+tt.in, func(t *testing.T) {
			g := NewWithT(t)
			g.Expect(arbiter.ParseRenderType(tt.in)).To(Equal(tt.want))
		})
	}
}

func Test_TypeForLegacyFormatID(t *testing.T) {
	g := NewWithT(t)

	g.Expect(arbiter.TypeForLegacyFormatID(1)).To(Equal(arbiter.TypeHeadshot))
	g.Expect(arbiter.TypeForLegacyFormatID(2)).To(Equal(arbiter.TypeAvatar))
	g.Expect(arbiter.TypeForLegacyFormatID(3)).To(Equal(arbiter.TypeFull))
	g.Expect(arbiter.TypeForLegacyFormatID(99)).To(Equal(arbiter.TypeHeadshot))
}

func Test_RenderType_DefaultDimensions(t *testing.T) {
	tests := []struct {
		typ        arbiter.RenderType
		wantWidth  int
		wantHeight int
	}{
		{arbiter.TypeHeadshot, 1024, 1024},
		{arbiter.TypeFull, 1024, 1024},
		{arbiter.TypeFullBody, 1024, 1024},
		{arbiter.TypeAvatar, 420, 800},
		{arbiter.TypeThumbnail, 150, 150},
		{arbiter.RenderType("poster"), 420, 420},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			g := NewWithT(t)

			w, h := tt.typ.DefaultDimensions()
			g.Expect(w).To(Equal(tt.wantWidth))
			g.Expect(h).To(Equal(tt.wantHeight))
		})
	}
}

func Test_Client_Render_QueryParameters(t *testing.T) {
	g := NewWithT(t)

	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(base64.StdEncoding.EncodeToString(pngBytes))
	}))
	defer srv.Close()

	c := arbiter.NewClient(srv.URL, 0, "http://cdn.example.com", newTestStore(t))

	// Type defaults apply when no explicit dimensions are given.
	_, err := c.Render(context.Background(), arbiter.TypeAvatar, 42, 0, 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(gotQuery.Get("type")).To(Equal("avatar"))
	g.Expect(gotQuery.Get("userId")).To(Equal("42"))
	g.Expect(gotQuery.Get("x")).To(Equal("420"))
	g.Expect(gotQuery.Get("y")).To(Equal("800"))
	g.Expect(gotQuery.Get("baseUrl")).To(Equal("http://cdn.example.com"))

	// Explicit dimensions override the type defaults.
	_, err = c.Render(context.Background(), arbiter.TypeAvatar, 42, 64, 64)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(gotQuery.Get("x")).To(Equal("64"))
	g.Expect(gotQuery.Get("y")).To(Equal("64"))
}

func Test_Client_Render_ScanOrder(t *testing.T) {
	g := NewWithT(t)

	payload := base64.StdEncoding.EncodeToString(pngBytes)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The non-empty first entry wins on the end-to-start fallback scan.
		body := []any{
			map[string]string{"type": "string", "value": payload},
			map[string]string{"type": "string", "value": ""},
		}
		json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	c := arbiter.NewClient(srv.URL, 0, "", newTestStore(t))

	got, err := c.Render(context.Background(), arbiter.TypeHeadshot, 1, 0, 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal(payload))
}

func Test_Client_Render_Upstream5xx(t *testing.T) {
	g := NewWithT(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := arbiter.NewClient(srv.URL, 0, "", newTestStore(t))

	_, err := c.Render(context.Background(), arbiter.TypeHeadshot, 1, 0, 0)
	g.Expect(err).To(HaveOccurred())

	var unavailable *arbiter.UnavailableError
	g.Expect(errors.As(err, &unavailable)).To(BeTrue())
}

func Test_Client_Render_TransportError(t *testing.T) {
	g := NewWithT(t)

	c := arbiter.NewClient("http://127.0.0.1:1", 0, "", newTestStore(t))

	_, err := c.Render(context.Background(), arbiter.TypeHeadshot, 1, 0, 0)
	g.Expect(err).To(HaveOccurred())

	var unavailable *arbiter.UnavailableError
	g.Expect(errors.As(err, &unavailable)).To(BeTrue())
}

func Test_Client_Render_ProtocolError(t *testing.T) {
	g := NewWithT(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	defer srv.Close()

	c := arbiter.NewClient(srv.URL, 0, "", newTestStore(t))

	_, err := c.Render(context.Background(), arbiter.TypeHeadshot, 1, 0, 0)
	g.Expect(err).To(HaveOccurred())

	var protoErr *arbiter.ProtocolError
	g.Expect(errors.As(err, &protoErr)).To(BeTrue())
	g.Expect(protoErr.Payload).To(ContainSubstring("unexpected"))
}

func Test_Client_RenderAndIngest(t *testing.T) {
	g := NewWithT(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"value": base64.StdEncoding.EncodeToString(pngBytes)})
	}))
	defer srv.Close()

	st := newTestStore(t)
	c := arbiter.NewClient(srv.URL, 0, "", st)

	res, err := c.RenderAndIngest(context.Background(), arbiter.TypeHeadshot, 42, 0, 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Format).To(Equal(imgformat.PNG))
	g.Expect(res.AlreadyExisted).To(BeFalse())

	stored, err := os.ReadFile(res.FullPath)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(stored).To(Equal(pngBytes))

	// A second identical render dedups by content hash.
	res2, err := c.RenderAndIngest(context.Background(), arbiter.TypeHeadshot, 42, 0, 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res2.AlreadyExisted).To(BeTrue())
	g.Expect(res2.Hash).To(Equal(res.Hash))
}
