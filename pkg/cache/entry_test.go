package cache

import "testing"

func TestIsEmptyRender(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "sentinel", value: EmptyRender, want: true},
		{name: "empty string", value: "", want: true},
		{name: "whitespace", value: " \n\t", want: true},
		{name: "markup", value: "<div>old</div>", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEmptyRender(tt.value); got != tt.want {
				t.Errorf("IsEmptyRender(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		max     int
		wantErr error
	}{
		{name: "valid", key: "dbx-v2-p1-n10-srpad", max: 45},
		{name: "empty", key: "", max: 45, wantErr: ErrInvalidKey},
		{name: "space", key: "dbx v2", max: 45, wantErr: ErrInvalidKey},
		{name: "newline", key: "dbx\nv2", max: 45, wantErr: ErrInvalidKey},
		{name: "non ascii", key: "dbx-ü", max: 45, wantErr: ErrInvalidKey},
		{name: "too long", key: "dbx-v2-p1234567890-n10-srpad-e-ns-f-lkg-extra12", max: 45, wantErr: ErrKeyTooLong},
		{name: "ceiling disabled", key: "dbx-v2-p1234567890-n10-srpad-e-ns-f-lkg-extra12", max: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateKey(tt.key, tt.max); err != tt.wantErr {
				t.Errorf("ValidateKey() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
