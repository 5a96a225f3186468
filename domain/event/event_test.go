package event

import (
	"bytes"
	"testing"
	"time"
)

func TestWrapCapturesWallTime(t *testing.T) {
	before := float64(time.Now().UnixNano()) / 1e9
	ev := Wrap(Payload{Kind: KindSummary, Data: []byte("s")})
	after := float64(time.Now().UnixNano()) / 1e9

	if ev.WallTime < before || ev.WallTime > after {
		t.Fatalf("wall time %f outside [%f, %f]", ev.WallTime, before, after)
	}
	if ev.HasStep {
		t.Fatal("stepless wrap must not set a step")
	}
}

func TestWrapStepRejectsNegative(t *testing.T) {
	_, err := WrapStep(Payload{Kind: KindSummary, Data: []byte("s")}, -1)
	if err != ErrNegativeStep {
		t.Fatalf("expected ErrNegativeStep, got %v", err)
	}
}

func TestWrapStepZeroIsValid(t *testing.T) {
	ev, err := WrapStep(Payload{Kind: KindSummary, Data: []byte("s")}, 0)
	if err != nil {
		t.Fatalf("step 0: %v", err)
	}
	if !ev.HasStep || ev.Step != 0 {
		t.Fatalf("expected step 0, got %+v", ev)
	}
}

func TestEncodeDecodeSummary(t *testing.T) {
	ev, err := WrapStep(Payload{Kind: KindSummary, Data: []byte("loss=0.42")}, 17)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Decode(ev.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.WallTime != ev.WallTime {
		t.Fatalf("wall time: got %f want %f", got.WallTime, ev.WallTime)
	}
	if !got.HasStep || got.Step != 17 {
		t.Fatalf("step: got %+v", got)
	}
	if got.Payload.Kind != KindSummary || !bytes.Equal(got.Payload.Data, []byte("loss=0.42")) {
		t.Fatalf("payload: got %+v", got.Payload)
	}
}

func TestEncodeDecodeSteplessGraph(t *testing.T) {
	ev := Wrap(Payload{Kind: KindGraphDef, Data: []byte{0x01, 0x02}})

	got, err := Decode(ev.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.HasStep {
		t.Fatal("graph event must stay stepless")
	}
	if got.Payload.Kind != KindGraphDef {
		t.Fatalf("kind: got %v", got.Payload.Kind)
	}
}

func TestFileVersionRecord(t *testing.T) {
	got, err := Decode(FileVersion().Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Payload.Kind != KindFileVersion || string(got.Payload.Data) != "brain.Event:2" {
		t.Fatalf("unexpected version record: %+v", got.Payload)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Fatal("expected decode failure")
	}
}
