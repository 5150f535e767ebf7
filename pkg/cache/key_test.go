package cache

import (
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestRequestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  RequestKey
		want string
	}{
		{
			name: "root collection",
			key:  RequestKey{Host: "dav.example.com", Path: "/"},
			want: "dav:dav.example.com",
		},
		{
			name: "nested collection",
			key:  RequestKey{Host: "dav.example.com", Path: "/files/projects/"},
			want: "dav:dav.example.com:files/projects",
		},
		{
			name: "query params sorted",
			key: RequestKey{
				Host: "dav.example.com",
				Path: "/files/",
				Query: url.Values{
					"z": []string{"1"},
					"a": []string{"2"},
				},
			},
			want: "dav:dav.example.com:files:a=2:z=1",
		},
		{
			name: "repeated query param",
			key: RequestKey{
				Path:  "/files/",
				Query: url.Values{"tag": []string{"x", "y"}},
			},
			want: "dav:files:tag=x,y",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyFromRequest(t *testing.T) {
	r := httptest.NewRequest("PROPFIND", "http://DAV.example.com/files/?b=2&a=1", nil)

	key := KeyFromRequest(r)
	if key.Host != "dav.example.com" {
		t.Errorf("Host = %q, want dav.example.com", key.Host)
	}
	if got, want := key.String(), "dav:dav.example.com:files:a=1:b=2"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestHashKey(t *testing.T) {
	a := HashKey("dav:host:files")
	b := HashKey("dav:host:files")
	c := HashKey("dav:host:other")

	if len(a) != 16 {
		t.Errorf("len(HashKey) = %d, want 16", len(a))
	}
	if a != b {
		t.Errorf("HashKey not deterministic: %q != %q", a, b)
	}
	if a == c {
		t.Errorf("HashKey collision for different keys: %q", a)
	}
}

func TestRequestKey_HashScopesToURL(t *testing.T) {
	a := KeyFromRequest(httptest.NewRequest("PROPFIND", "http://h/a/", nil))
	b := KeyFromRequest(httptest.NewRequest("PROPFIND", "http://h/b/", nil))
	if a.Hash() == b.Hash() {
		t.Error("different URLs produced the same hash")
	}
}
