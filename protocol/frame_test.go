package protocol

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := AppendVLQUint(nil, 1000)
	frame, err := AppendFrame(nil, MessageDest|3, payload)
	if err != nil {
		t.Fatal(err)
	}
	if int(frame[0]) != len(frame) {
		t.Errorf("length byte %d, frame is %d bytes", frame[0], len(frame))
	}
	if frame[len(frame)-1] != MessageValueSync {
		t.Errorf("frame does not end in sync byte")
	}

	got, n, err := ParseFrame(append(frame, 0xAA))
	if err != nil {
		t.Fatal(err)
	}
	if n != len(frame) {
		t.Errorf("consumed %d, want %d", n, len(frame))
	}
	if got.Seq != MessageDest|3 || !bytes.Equal(got.Payload, payload) {
		t.Errorf("got %+v", got)
	}
	if got.IsAck() {
		t.Error("data frame reported as ack")
	}
}

func TestAckFrame(t *testing.T) {
	ack := AppendAck(nil, MessageDest)
	want := []byte{5, MessageDest, 0x9E, 0x81, MessageValueSync}
	if !bytes.Equal(ack, want) {
		t.Errorf("ack = % X, want % X", ack, want)
	}
	f, n, err := ParseFrame(ack)
	if err != nil || n != 5 || !f.IsAck() {
		t.Errorf("ParseFrame(ack) = %+v, %d, %v", f, n, err)
	}
}

func TestFrameTooLong(t *testing.T) {
	if _, err := AppendFrame(nil, MessageDest, make([]byte, MessagePayloadMax)); err != nil {
		t.Errorf("max payload rejected: %v", err)
	}
	if _, err := AppendFrame(nil, MessageDest, make([]byte, MessagePayloadMax+1)); err != ErrFrameTooLong {
		t.Errorf("expected ErrFrameTooLong, got %v", err)
	}
}

func TestParseFrameErrors(t *testing.T) {
	good, _ := AppendFrame(nil, MessageDest, []byte{1, 2, 3})

	corrupt := func(i int, b byte) []byte {
		f := append([]byte(nil), good...)
		f[i] = b
		return f
	}

	testCases := []struct {
		name string
		data []byte
		want error
	}{
		{"short length", corrupt(0, 2), ErrBadLength},
		{"long length", corrupt(0, 65), ErrBadLength},
		{"bad sequence", corrupt(1, 0x23), ErrBadSequence},
		{"bad crc", corrupt(2, 9), ErrBadCRC},
		{"no sync", corrupt(len(good)-1, 0), ErrNoSync},
	}
	for _, tc := range testCases {
		if _, _, err := ParseFrame(tc.data); err != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}

	// Partial input waits for more.
	if _, n, err := ParseFrame(good[:len(good)-1]); n != 0 || err != nil {
		t.Errorf("partial frame: n=%d err=%v", n, err)
	}
}

func TestSkipToSync(t *testing.T) {
	if n := SkipToSync([]byte{1, 2, MessageValueSync, 4}); n != 3 {
		t.Errorf("got %d, want 3", n)
	}
	if n := SkipToSync([]byte{1, 2}); n != 2 {
		t.Errorf("got %d, want 2", n)
	}
}
