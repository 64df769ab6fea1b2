package wire

import "testing"

func TestEncodeDecodeFrame(t *testing.T) {
	payload := ProbeData{
		BSSID:  MustParseMAC("AA:AA:AA:AA:AA:01"),
		Address: MustParseMAC("CC:00:00:00:00:01"),
		Signal: -55,
		Freq:   5180,
	}
	raw, err := EncodeFrame(MethodProbe, payload)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	f, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if f.Method != MethodProbe {
		t.Fatalf("Method = %q, want %q", f.Method, MethodProbe)
	}

	var got ProbeData
	if err := DecodePayload(f, &got); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if got != payload {
		t.Fatalf("got %+v, want %+v", got, payload)
	}
}

func TestDecodeFrameMissingMethod(t *testing.T) {
	if _, err := DecodeFrame([]byte(`{"data":{}}`)); err == nil {
		t.Fatal("expected error for missing method")
	}
}

func TestDecodeFrameMalformedJSON(t *testing.T) {
	if _, err := DecodeFrame([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
