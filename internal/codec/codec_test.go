package codec

import "testing"

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "", want: LevelDefault},
		{in: "default", want: LevelDefault},
		{in: "fastest", want: LevelFastest},
		{in: "best", want: LevelBest},
		{in: "ultra", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if back, _ := ParseLevel(got.String()); back != got {
				t.Errorf("ParseLevel(%q) = %v, want %v", got.String(), back, got)
			}
		})
	}
}
