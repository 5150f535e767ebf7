package paginate

import (
	"net/http"
	"testing"
)

func TestParseState(t *testing.T) {
	cfg := Config{PageSize: 100, MaxPageSize: 500}

	tests := []struct {
		name    string
		headers map[string]string
		want    State
		mode    Mode
	}{
		{
			name: "no markers",
			want: State{Count: 100},
			mode: ModeUnpaginated,
		},
		{
			name:    "pagination requested",
			headers: map[string]string{HeaderPaginate: "true"},
			want:    State{Requested: true, Count: 100},
			mode:    ModeInitiate,
		},
		{
			name:    "pagination requested with override",
			headers: map[string]string{HeaderPaginate: "1", HeaderCount: "25"},
			want:    State{Requested: true, Count: 25},
			mode:    ModeInitiate,
		},
		{
			name:    "pagination explicitly off",
			headers: map[string]string{HeaderPaginate: "false"},
			want:    State{Count: 100},
			mode:    ModeUnpaginated,
		},
		{
			name:    "follow-up page",
			headers: map[string]string{HeaderToken: "abc", HeaderOffset: "200", HeaderCount: "50"},
			want:    State{Token: "abc", Offset: 200, HasOffset: true, Count: 50},
			mode:    ModeFetchPage,
		},
		{
			name:    "token without offset",
			headers: map[string]string{HeaderToken: "abc"},
			want:    State{Token: "abc", Count: 100},
			mode:    ModeUnpaginated,
		},
		{
			name:    "count clamped",
			headers: map[string]string{HeaderPaginate: "true", HeaderCount: "100000"},
			want:    State{Requested: true, Count: 500},
			mode:    ModeInitiate,
		},
		{
			name:    "malformed numbers fall back",
			headers: map[string]string{HeaderToken: "abc", HeaderOffset: "x", HeaderCount: "-3"},
			want:    State{Token: "abc", HasOffset: true, Count: 100},
			mode:    ModeFetchPage,
		},
		{
			name:    "negative offset",
			headers: map[string]string{HeaderToken: "abc", HeaderOffset: "-10"},
			want:    State{Token: "abc", HasOffset: true, Count: 100},
			mode:    ModeFetchPage,
		},
		{
			name:    "garbage paginate value",
			headers: map[string]string{HeaderPaginate: "please"},
			want:    State{Count: 100},
			mode:    ModeUnpaginated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			got := ParseState(h, cfg)
			if got != tt.want {
				t.Errorf("ParseState() = %+v, want %+v", got, tt.want)
			}
			if got.Mode() != tt.mode {
				t.Errorf("Mode() = %v, want %v", got.Mode(), tt.mode)
			}
		})
	}
}

func TestParseState_NoCap(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderCount, "100000")

	got := ParseState(h, Config{PageSize: 100})
	if got.Count != 100000 {
		t.Errorf("Count = %d, want 100000", got.Count)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "no cap", cfg: Config{PageSize: 10}},
		{name: "zero page size", cfg: Config{PageSize: 0}, wantErr: true},
		{name: "negative cap", cfg: Config{PageSize: 10, MaxPageSize: -1}, wantErr: true},
		{name: "cap below page size", cfg: Config{PageSize: 10, MaxPageSize: 5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
