package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestSetLEDs(t *testing.T) {
	got := SetLEDs([]byte{10, 20, 30}, Color{R: 0xFF, G: 0x00, B: 0xAA})
	want := []byte{10, 20, 30, 0xFF, 0x00, 0xAA}
	if !bytes.Equal(got, want) {
		t.Errorf("SetLEDs() = %v, want %v", got, want)
	}
}

func TestSetLEDs_NoLEDs(t *testing.T) {
	// Degenerate but well-formed: colour bytes only.
	got := SetLEDs(nil, Color{R: 1, G: 2, B: 3})
	want := []byte{1, 2, 3}
	if !bytes.Equal(got, want) {
		t.Errorf("SetLEDs() = %v, want %v", got, want)
	}
}

func TestUnsetLEDs(t *testing.T) {
	leds := []byte{5, 6}
	got := UnsetLEDs(leds)
	if !bytes.Equal(got, []byte{5, 6}) {
		t.Errorf("UnsetLEDs() = %v, want [5 6]", got)
	}

	// Builder must copy, not alias the caller's slice.
	got[0] = 99
	if leds[0] != 5 {
		t.Error("UnsetLEDs() aliased the input slice")
	}
}

func TestAllOn(t *testing.T) {
	got := AllOn(Color{R: 0x12, G: 0x34, B: 0x56})
	want := []byte{0x12, 0x34, 0x56}
	if !bytes.Equal(got, want) {
		t.Errorf("AllOn() = %v, want %v", got, want)
	}
}

func TestEmptyPayloads(t *testing.T) {
	if got := AllOff(); len(got) != 0 {
		t.Errorf("AllOff() = %v, want empty", got)
	}
	if got := Reset(); len(got) != 0 {
		t.Errorf("Reset() = %v, want empty", got)
	}
	if got := DumpRequest(); len(got) != 0 {
		t.Errorf("DumpRequest() = %v, want empty", got)
	}
}

func TestPosition(t *testing.T) {
	got := Position(3, []byte{10, 20})
	want := []byte{3, 10, 20}
	if !bytes.Equal(got, want) {
		t.Errorf("Position() = %v, want %v", got, want)
	}
}

func TestDeletePosition(t *testing.T) {
	got := DeletePosition(7)
	if !bytes.Equal(got, []byte{7}) {
		t.Errorf("DeletePosition() = %v, want [7]", got)
	}
}

func TestParseDumpItem(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    DumpItem
		wantErr error
	}{
		{
			name:    "single LED",
			payload: []byte{3, 10},
			want:    DumpItem{Position: 3, LEDs: []byte{10}},
		},
		{
			name:    "several LEDs",
			payload: []byte{255, 0, 1, 2, 255},
			want:    DumpItem{Position: 255, LEDs: []byte{0, 1, 2, 255}},
		},
		{
			name:    "empty payload",
			payload: nil,
			wantErr: ErrEmptyDumpItem,
		},
		{
			name:    "position without LEDs",
			payload: []byte{3},
			wantErr: ErrNoLEDs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDumpItem(tt.payload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseDumpItem() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDumpItem() error = %v", err)
			}
			if got.Position != tt.want.Position {
				t.Errorf("Position = %d, want %d", got.Position, tt.want.Position)
			}
			if !bytes.Equal(got.LEDs, tt.want.LEDs) {
				t.Errorf("LEDs = %v, want %v", got.LEDs, tt.want.LEDs)
			}
		})
	}
}

func TestParseDumpItem_CopiesPayload(t *testing.T) {
	payload := []byte{1, 10, 20}
	item, err := ParseDumpItem(payload)
	if err != nil {
		t.Fatalf("ParseDumpItem() error = %v", err)
	}

	payload[1] = 99
	if item.LEDs[0] != 10 {
		t.Error("ParseDumpItem() aliased the payload slice")
	}
}
